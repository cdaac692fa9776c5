package feed

import (
	"context"
	"testing"
	"time"

	"yxscraper/pkg/browser"
	"yxscraper/pkg/config"
)

// fakeSession simulates a lazily-loaded feed. The feed size is a
// function of how many scrolls have happened; the show-more control
// appears after a configured scroll and vanishes once clicked.
type fakeSession struct {
	// feedSizes[i] is the element count after i scrolls; the last
	// entry repeats forever
	feedSizes []int

	// showMoreAfter is the scroll count at which the show-more control
	// appears (-1 for never)
	showMoreAfter  int
	showMoreClicks int

	// frozenPosition pins ScrollPosition to one value, simulating a
	// page that physically stopped growing
	frozenPosition bool

	scrolls      int
	thumbURLs    []string
	resultHrefs  []string
	uploadCalls  int
	closed       bool
}

func (f *fakeSession) feedSize() int {
	if len(f.feedSizes) == 0 {
		return 0
	}
	i := f.scrolls
	if i >= len(f.feedSizes) {
		i = len(f.feedSizes) - 1
	}
	return f.feedSizes[i]
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error { return nil }

func (f *fakeSession) UploadFile(ctx context.Context, chain []browser.Locator, path string) error {
	f.uploadCalls++
	return nil
}

func (f *fakeSession) Click(ctx context.Context, chain []browser.Locator) error {
	if chain[0].Query == "more" {
		f.showMoreClicks++
	}
	return nil
}

func (f *fakeSession) CountElements(ctx context.Context, chain []browser.Locator) (int, error) {
	switch chain[0].Query {
	case "more":
		if f.showMoreAfter >= 0 && f.scrolls >= f.showMoreAfter && f.showMoreClicks == 0 {
			return 1, nil
		}
		return 0, nil
	default:
		return f.feedSize(), nil
	}
}

func (f *fakeSession) ExtractAttributes(ctx context.Context, chain []browser.Locator, attrs []string) ([]string, error) {
	switch chain[0].Query {
	case "links":
		return f.resultHrefs, nil
	default:
		return f.thumbURLs, nil
	}
}

func (f *fakeSession) ScrollToBottom(ctx context.Context) error {
	f.scrolls++
	return nil
}

func (f *fakeSession) ScrollPosition(ctx context.Context) (float64, error) {
	if f.frozenPosition {
		return 1000, nil
	}
	return float64(f.scrolls*1000 + f.feedSize()), nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func testLocators() browser.Locators {
	return browser.Locators{
		ShowMore:       []browser.Locator{browser.CSS("more")},
		Thumbnails:     []browser.Locator{browser.CSS("items")},
		ResultLinks:    []browser.Locator{browser.CSS("links")},
		ThumbnailAttrs: []string{"src"},
	}
}

func testFeedConfig(threshold int) *config.FeedConfig {
	return &config.FeedConfig{
		MaxScrollRounds:    20,
		SettleInterval:     time.Millisecond,
		StabilityThreshold: threshold,
	}
}

func makeURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = "https://example.com/img" + string(rune('a'+i)) + ".jpg"
	}
	return urls
}

func TestExpandConvergesAfterStableRounds(t *testing.T) {
	// The feed loads fully on the first scroll and the show-more
	// control appears after round one. With threshold 2 the loop must
	// terminate within four rounds: one for the click, two for
	// stability, plus the first.
	session := &fakeSession{
		feedSizes:     []int{0, 10, 10, 10, 10},
		showMoreAfter: 1,
		thumbURLs:     makeURLs(10),
	}

	e := NewExpander(session, testLocators(), testFeedConfig(2), nil)

	urls, err := e.Expand(context.Background(), 20)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}

	if len(urls) != 10 {
		t.Errorf("Expected 10 URLs, got %d", len(urls))
	}
	if session.showMoreClicks != 1 {
		t.Errorf("Expected show-more to be clicked exactly once, got %d", session.showMoreClicks)
	}
	if session.scrolls > 4 {
		t.Errorf("Expected at most 4 scroll rounds, got %d", session.scrolls)
	}
}

func TestExpandShowMoreClickedAtMostOnce(t *testing.T) {
	// The control stays discoverable every round in this fake; the
	// expander must still activate it only once.
	session := &fakeSession{
		feedSizes:     []int{0, 5, 5, 5},
		showMoreAfter: 0,
		thumbURLs:     makeURLs(5),
	}

	e := NewExpander(session, testLocators(), testFeedConfig(2), nil)

	if _, err := e.Expand(context.Background(), 20); err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if session.showMoreClicks != 1 {
		t.Errorf("Expected exactly one show-more click, got %d", session.showMoreClicks)
	}
}

func TestExpandStopsAtRoundCap(t *testing.T) {
	// A feed that grows on every scroll never stabilizes; the cap must
	// stop the loop and the run still succeeds.
	sizes := make([]int, 50)
	for i := range sizes {
		sizes[i] = i * 3
	}
	session := &fakeSession{
		feedSizes:     sizes,
		showMoreAfter: -1,
		thumbURLs:     makeURLs(6),
	}

	e := NewExpander(session, testLocators(), testFeedConfig(3), nil)

	urls, err := e.Expand(context.Background(), 5)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if session.scrolls != 5 {
		t.Errorf("Expected exactly 5 scroll rounds, got %d", session.scrolls)
	}
	if len(urls) != 6 {
		t.Errorf("Expected 6 URLs, got %d", len(urls))
	}
}

func TestExpandStopsWhenPositionFrozen(t *testing.T) {
	// An unchanged scroll extent means the page is at its physical
	// bottom; the loop must not burn rounds waiting for stability.
	session := &fakeSession{
		feedSizes:      []int{0, 4, 8, 12},
		showMoreAfter:  -1,
		frozenPosition: true,
		thumbURLs:      makeURLs(4),
	}

	e := NewExpander(session, testLocators(), testFeedConfig(3), nil)

	if _, err := e.Expand(context.Background(), 20); err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if session.scrolls != 1 {
		t.Errorf("Expected a single scroll round, got %d", session.scrolls)
	}
}

func TestExpandHonorsCancellation(t *testing.T) {
	session := &fakeSession{
		feedSizes:     []int{0, 5},
		showMoreAfter: -1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExpander(session, testLocators(), testFeedConfig(2), nil)

	if _, err := e.Expand(ctx, 20); err == nil {
		t.Fatal("Expected error from cancelled context")
	}
	if session.scrolls != 0 {
		t.Errorf("Expected no scrolls after cancellation, got %d", session.scrolls)
	}
}

func TestExpandEmptyFeed(t *testing.T) {
	session := &fakeSession{
		feedSizes:     []int{0},
		showMoreAfter: -1,
	}

	e := NewExpander(session, testLocators(), testFeedConfig(2), nil)

	urls, err := e.Expand(context.Background(), 10)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("Expected no URLs from an empty feed, got %d", len(urls))
	}
}

func TestExtractURLsDeduplicatesAndFilters(t *testing.T) {
	session := &fakeSession{
		feedSizes: []int{3},
		thumbURLs: []string{
			"https://example.com/a.jpg",
			"https://example.com/a.jpg", // duplicate
			"//cdn.example.com/b.jpg",   // protocol-relative, rejected
			"https://example.com/thumbs/small.jpg", // thumbnail variant
			"https://example.com/preview/thumbs/c.jpg", // preview kept
		},
		resultHrefs: []string{
			"https://yandex.com/images/search?img_url=https%3A%2F%2Forigin.example.com%2Ffull.jpg&rpt=simage",
			"https://yandex.com/images/search?rpt=simage", // no img_url
			"https://example.com/a.jpg",                   // no img_url param
		},
	}

	e := NewExpander(session, testLocators(), testFeedConfig(2), nil)

	urls := e.extractURLs(context.Background())

	want := map[string]bool{
		"https://example.com/a.jpg":                  true,
		"https://example.com/preview/thumbs/c.jpg":   true,
		"https://origin.example.com/full.jpg":        true,
	}
	if len(urls) != len(want) {
		t.Fatalf("Expected %d URLs, got %d: %v", len(want), len(urls), urls)
	}
	for _, u := range urls {
		if !want[u] {
			t.Errorf("Unexpected URL in result: %s", u)
		}
	}
}

func TestUnwrapImageURL(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{
			name: "encoded original url",
			href: "https://yandex.com/images/search?img_url=https%3A%2F%2Fhost.example%2Fphoto.png&rpt=simage",
			want: "https://host.example/photo.png",
		},
		{
			name: "missing parameter",
			href: "https://yandex.com/images/search?rpt=simage",
			want: "",
		},
		{
			name: "unparseable href",
			href: "://bad",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unwrapImageURL(tt.href); got != tt.want {
				t.Errorf("unwrapImageURL(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}
