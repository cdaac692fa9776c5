package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"mime"
	"net/url"
	"path"
	"strings"
)

// DefaultExtension is used when neither the URL nor the response says
// anything useful about the format.
const DefaultExtension = ".jpg"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// FilenameForURL derives the content-addressed filename for a URL: a
// stable hash of the URL string plus an extension inferred from the
// URL path. The same URL always maps to the same name within and
// across runs, which is the basis for skip-on-rerun resumability.
func FilenameForURL(rawURL string) string {
	return hashPrefix(rawURL) + ExtensionForURL(rawURL)
}

// FilenameWithContentType derives the filename preferring the URL's
// own extension and falling back to the response Content-Type.
func FilenameWithContentType(rawURL, contentType string) string {
	ext := DefaultExtension
	if e := urlExtension(rawURL); e != "" {
		ext = e
	} else if e := contentTypeExtension(contentType); e != "" {
		ext = e
	}
	return hashPrefix(rawURL) + ext
}

// ExtensionForURL infers an image extension from the URL path, or the
// default when the path carries none.
func ExtensionForURL(rawURL string) string {
	if e := urlExtension(rawURL); e != "" {
		return e
	}
	return DefaultExtension
}

func hashPrefix(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:16]
}

func urlExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if imageExtensions[ext] {
		return ext
	}
	return ""
}

func contentTypeExtension(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ""
	}
}
