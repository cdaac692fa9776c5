package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"yxscraper/pkg/config"
	errs "yxscraper/pkg/errors"
	"yxscraper/pkg/logger"
)

// chain lookups use a short per-locator deadline so a dead selector
// fails over to the next one quickly
const locatorTimeout = 3 * time.Second

// ChromeSession drives a Chrome instance through the DevTools protocol.
type ChromeSession struct {
	browserCtx  context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	opTimeout   time.Duration
	logger      logger.Logger
}

// NewChromeSession launches Chrome and returns an attached session.
// A launch or handshake failure is a session setup error: the run
// cannot proceed.
func NewChromeSession(cfg *config.BrowserConfig, log logger.Logger) (*ChromeSession, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so setup failures surface here
	if err := chromedp.Run(browserCtx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, errs.Newf(errs.KindSessionSetup, "failed to launch browser: %v", err)
	}

	log.InfoWithFields("browser session started", map[string]interface{}{
		"headless": cfg.Headless,
	})

	return &ChromeSession{
		browserCtx:  browserCtx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		opTimeout:   cfg.NavigationTimeout,
		logger:      log,
	}, nil
}

// Navigate loads the given URL.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(s.browserCtx, s.opTimeout)
	defer cancel()

	s.logger.DebugWithFields("navigating", map[string]interface{}{"url": url})

	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		return errs.Newf(errs.KindSessionSetup, "navigation to %s failed: %v", url, err)
	}
	return nil
}

// UploadFile sends a local file path to the first matching file input.
func (s *ChromeSession) UploadFile(ctx context.Context, chain []Locator, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, loc := range chain {
		tctx, cancel := context.WithTimeout(s.browserCtx, s.opTimeout)
		err := chromedp.Run(tctx, chromedp.SetUploadFiles(loc.Query, []string{path}, queryOptions(loc)...))
		cancel()
		if err == nil {
			s.logger.DebugWithFields("file uploaded", map[string]interface{}{
				"locator": loc.Query,
				"path":    path,
			})
			return nil
		}
		s.logger.DebugWithFields("upload locator missed", map[string]interface{}{
			"locator": loc.Query,
			"error":   err.Error(),
		})
	}

	return errs.New(errs.KindElementNotFound, "no file input matched the locator chain")
}

// Click clicks the first visible element matched by the chain.
func (s *ChromeSession) Click(ctx context.Context, chain []Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, loc := range chain {
		tctx, cancel := context.WithTimeout(s.browserCtx, locatorTimeout)
		err := chromedp.Run(tctx, chromedp.Click(loc.Query, append(queryOptions(loc), chromedp.NodeVisible)...))
		cancel()
		if err == nil {
			s.logger.DebugWithFields("clicked element", map[string]interface{}{
				"locator": loc.Query,
			})
			return nil
		}
	}

	return errs.New(errs.KindElementNotFound, "no clickable element matched the locator chain")
}

// CountElements counts matches of the first locator that yields any.
func (s *ChromeSession) CountElements(ctx context.Context, chain []Locator) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	for _, loc := range chain {
		nodes, err := s.nodes(loc)
		if err != nil {
			continue
		}
		if len(nodes) > 0 {
			return len(nodes), nil
		}
	}
	return 0, nil
}

// ExtractAttributes collects attribute values from the first locator
// in the chain with any matches.
func (s *ChromeSession) ExtractAttributes(ctx context.Context, chain []Locator, attrs []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, loc := range chain {
		nodes, err := s.nodes(loc)
		if err != nil || len(nodes) == 0 {
			continue
		}

		values := make([]string, 0, len(nodes))
		for _, node := range nodes {
			for _, attr := range attrs {
				if v := node.AttributeValue(attr); v != "" {
					values = append(values, v)
					break
				}
			}
		}
		if len(values) > 0 {
			return values, nil
		}
	}
	return nil, nil
}

// ScrollToBottom scrolls the page to the bottom of the feed.
func (s *ChromeSession) ScrollToBottom(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(s.browserCtx, locatorTimeout)
	defer cancel()

	err := chromedp.Run(tctx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
	if err != nil {
		return errs.Newf(errs.KindSessionSetup, "scroll failed: %v", err)
	}
	return nil
}

// ScrollPosition reports the page's scroll extent.
func (s *ChromeSession) ScrollPosition(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tctx, cancel := context.WithTimeout(s.browserCtx, locatorTimeout)
	defer cancel()

	var height float64
	err := chromedp.Run(tctx,
		chromedp.Evaluate(`document.body.scrollHeight`, &height))
	if err != nil {
		return 0, errs.Newf(errs.KindSessionSetup, "scroll position query failed: %v", err)
	}
	return height, nil
}

// Close releases the browser. Safe to call more than once.
func (s *ChromeSession) Close() error {
	err := chromedp.Cancel(s.browserCtx)
	s.cancelCtx()
	s.cancelAlloc()
	if err != nil {
		s.logger.WithError(err).Warn("browser did not shut down cleanly")
		return err
	}
	s.logger.Info("browser session closed")
	return nil
}

// nodes fetches the DOM nodes for one locator with a short deadline.
func (s *ChromeSession) nodes(loc Locator) ([]*cdp.Node, error) {
	tctx, cancel := context.WithTimeout(s.browserCtx, locatorTimeout)
	defer cancel()

	var nodes []*cdp.Node
	err := chromedp.Run(tctx,
		chromedp.Nodes(loc.Query, &nodes, append(queryOptions(loc), chromedp.AtLeast(0))...))
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func queryOptions(loc Locator) []chromedp.QueryOption {
	if loc.XPath {
		return []chromedp.QueryOption{chromedp.BySearch}
	}
	return []chromedp.QueryOption{chromedp.ByQueryAll}
}
