package browser

import "context"

// Locator is a structural descriptor used to find UI elements: a CSS
// selector or an XPath expression. Element roles are looked up through
// ordered chains of locators; the first locator yielding any match
// wins. This keeps markup fragility out of the control flow: when the
// search UI changes, only the chains change.
type Locator struct {
	Query string
	XPath bool
}

// CSS builds a CSS selector locator.
func CSS(query string) Locator { return Locator{Query: query} }

// XPath builds an XPath locator.
func XPath(query string) Locator { return Locator{Query: query, XPath: true} }

// Session is the browser capability the pipeline drives. Locator
// chains are tried in order; a chain that matches nothing is reported
// through zero counts and empty results, not through errors, so
// callers degrade gracefully on markup variance.
//
// A Session is a single exclusively-owned resource: no concurrent
// access is permitted, and Close must be called on every exit path.
type Session interface {
	// Navigate loads the given URL and waits for the page to be ready.
	Navigate(ctx context.Context, url string) error

	// UploadFile sends a local file path to the first matching file
	// input in the chain.
	UploadFile(ctx context.Context, chain []Locator, path string) error

	// Click clicks the first visible element matched by the chain.
	// Returns an element_not_found error when the chain is exhausted.
	Click(ctx context.Context, chain []Locator) error

	// CountElements returns the number of elements matched by the
	// first locator in the chain that matches anything.
	CountElements(ctx context.Context, chain []Locator) (int, error)

	// ExtractAttributes returns, for the first locator in the chain
	// with any matches, the first non-empty attribute value (in attrs
	// priority order) of each matched element.
	ExtractAttributes(ctx context.Context, chain []Locator, attrs []string) ([]string, error)

	// ScrollToBottom scrolls the page to the bottom of the feed.
	ScrollToBottom(ctx context.Context) error

	// ScrollPosition reports the current scroll extent of the page.
	// An unchanged value across rounds means the feed is physically
	// at its bottom with nothing pending.
	ScrollPosition(ctx context.Context) (float64, error)

	// Close releases the browser session.
	Close() error
}
