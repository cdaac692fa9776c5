package feed

import (
	"context"
	"time"

	"yxscraper/pkg/browser"
	"yxscraper/pkg/config"
	"yxscraper/pkg/logger"
	"yxscraper/pkg/retry"
)

// state is the mutable convergence state of one Expand invocation.
// It is owned exclusively by that invocation and discarded afterwards.
type state struct {
	scrollCount   int
	stableRounds  int
	expandClicked bool
	lastPosition  float64
}

// Expander grows a lazily-loaded results feed to (near) its full
// extent by scrolling, pausing for asynchronous content, and
// activating the one-shot "show more" control.
//
// Convergence is best-effort: a count that stays flat for the
// stability threshold means the feed stopped growing for a while, not
// that it is exhausted. Callers should treat the returned set as the
// feed's observable extent, nothing stronger.
type Expander struct {
	session  browser.Session
	locators browser.Locators

	settleInterval     time.Duration
	stabilityThreshold int

	logger logger.Logger
}

// NewExpander creates an expander bound to a session.
func NewExpander(session browser.Session, locators browser.Locators, cfg *config.FeedConfig, log logger.Logger) *Expander {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Expander{
		session:            session,
		locators:           locators,
		settleInterval:     cfg.SettleInterval,
		stabilityThreshold: cfg.StabilityThreshold,
		logger:             log,
	}
}

// Expand runs the scroll/expand loop until the feed converges or the
// round cap is reached, then extracts and returns the distinct image
// URLs observed. Hitting maxScrollRounds is a normal termination, not
// an error. Cancellation is honored between rounds.
func (e *Expander) Expand(ctx context.Context, maxScrollRounds int) ([]string, error) {
	st := state{}

	if pos, err := e.session.ScrollPosition(ctx); err == nil {
		st.lastPosition = pos
	}

	for st.scrollCount < maxScrollRounds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		countBefore, err := e.session.CountElements(ctx, e.locators.Thumbnails)
		if err != nil {
			return nil, err
		}

		if err := e.session.ScrollToBottom(ctx); err != nil {
			return nil, err
		}
		st.scrollCount++

		// Fixed settle pause: the feed gives no reliable
		// loading-complete signal to wait on
		if err := retry.Wait(ctx, e.settleInterval); err != nil {
			return nil, err
		}

		if !st.expandClicked && e.showMorePresent(ctx) {
			if err := e.session.Click(ctx, e.locators.ShowMore); err == nil {
				st.expandClicked = true
				e.logger.InfoWithFields("activated show-more control", map[string]interface{}{
					"round": st.scrollCount,
				})
				// This round grew the feed by intent; it does not
				// count toward stability
				continue
			}
		}

		countAfter, err := e.session.CountElements(ctx, e.locators.Thumbnails)
		if err != nil {
			return nil, err
		}

		if countAfter <= countBefore {
			st.stableRounds++
		} else {
			st.stableRounds = 0
		}

		e.logger.DebugWithFields("scroll round complete", map[string]interface{}{
			"round":         st.scrollCount,
			"elements":      countAfter,
			"stable_rounds": st.stableRounds,
		})

		if st.stableRounds >= e.stabilityThreshold {
			e.logger.InfoWithFields("feed converged", map[string]interface{}{
				"rounds":   st.scrollCount,
				"elements": countAfter,
			})
			break
		}

		pos, err := e.session.ScrollPosition(ctx)
		if err != nil {
			return nil, err
		}
		if pos == st.lastPosition {
			e.logger.InfoWithFields("reached end of feed", map[string]interface{}{
				"rounds": st.scrollCount,
			})
			break
		}
		st.lastPosition = pos
	}

	if st.scrollCount >= maxScrollRounds {
		e.logger.WarnWithFields("scroll round cap reached", map[string]interface{}{
			"max_rounds": maxScrollRounds,
		})
	}

	urls := e.extractURLs(ctx)

	e.logger.InfoWithFields("feed expansion finished", map[string]interface{}{
		"rounds":       st.scrollCount,
		"show_more":    st.expandClicked,
		"distinct_urls": len(urls),
	})

	return urls, nil
}

// showMorePresent probes the show-more chain; lookup failures mean
// the control simply is not there.
func (e *Expander) showMorePresent(ctx context.Context) bool {
	count, err := e.session.CountElements(ctx, e.locators.ShowMore)
	return err == nil && count > 0
}
