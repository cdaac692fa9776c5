package feed

import (
	"context"
	"net/url"
	"strings"
)

// extractURLs collects distinct candidate image URLs from the feed.
// Thumbnail sources come first, then original-image URLs unwrapped
// from redirect links. Locator failures yield zero matches and the
// chain proceeds; a total miss returns an empty set, not an error.
func (e *Expander) extractURLs(ctx context.Context) []string {
	seen := make(map[string]struct{})
	var urls []string

	add := func(raw string) {
		if !isCandidateURL(raw) {
			return
		}
		if _, ok := seen[raw]; ok {
			return
		}
		seen[raw] = struct{}{}
		urls = append(urls, raw)
	}

	sources, err := e.session.ExtractAttributes(ctx, e.locators.Thumbnails, e.locators.ThumbnailAttrs)
	if err != nil {
		e.logger.WithError(err).Warn("thumbnail extraction failed")
	}
	for _, src := range sources {
		add(src)
	}

	hrefs, err := e.session.ExtractAttributes(ctx, e.locators.ResultLinks, []string{"href"})
	if err != nil {
		e.logger.WithError(err).Warn("result link extraction failed")
	}
	for _, href := range hrefs {
		if original := unwrapImageURL(href); original != "" {
			add(original)
		}
	}

	return urls
}

// isCandidateURL filters out non-HTTP values and tiny thumbnail
// variants. Preview URLs are kept: they carry the full-size image.
func isCandidateURL(raw string) bool {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return false
	}
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "thumb") && !strings.Contains(lower, "preview") {
		return false
	}
	return true
}

// unwrapImageURL extracts the original image URL from a redirect link
// carrying an img_url query parameter.
func unwrapImageURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("img_url")
}
