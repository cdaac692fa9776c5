package scraper

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"yxscraper/internal/downloader"
	"yxscraper/pkg/browser"
	"yxscraper/pkg/config"
	errs "yxscraper/pkg/errors"
	"yxscraper/pkg/feed"
	"yxscraper/pkg/logger"
	"yxscraper/pkg/models"
	"yxscraper/pkg/ratelimit"
	"yxscraper/pkg/retry"
	"yxscraper/pkg/storage"
	"yxscraper/pkg/yandex"
)

// Scraper runs the full pipeline for one query image: drive the
// browser through the reverse-image search, expand the results feed,
// then download every harvested URL.
type Scraper struct {
	config   *config.Config
	locators browser.Locators
	logger   logger.Logger

	// newSession is swapped out in tests
	newSession func() (browser.Session, error)
	fetcher    downloader.ImageFetcher

	onBatchStart func(total int)
	onRecord     func(models.DownloadRecord)
}

// New creates a scraper from the given configuration.
func New(cfg *config.Config) (*Scraper, error) {
	log := logger.GetLogger()

	client := yandex.NewClient(cfg.Download.RequestTimeout, cfg.Browser.UserAgent, log)

	return &Scraper{
		config:   cfg,
		locators: browser.DefaultLocators(),
		logger:   log,
		newSession: func() (browser.Session, error) {
			return browser.NewChromeSession(&cfg.Browser, log)
		},
		fetcher: newRetryingFetcher(client, cfg.Download.RetryAttempts, log),
	}, nil
}

// OnBatchStart registers a callback invoked once the download batch
// size is known, before any download runs.
func (s *Scraper) OnBatchStart(fn func(total int)) {
	s.onBatchStart = fn
}

// OnRecord registers a callback invoked for every download record as
// it arrives. Used for live progress display.
func (s *Scraper) OnRecord(fn func(models.DownloadRecord)) {
	s.onRecord = fn
}

// Run executes a complete scrape for the given query image and returns
// the run summary. The browser session is released on every exit path;
// individual download failures are folded into the summary rather than
// aborting the run.
func (s *Scraper) Run(ctx context.Context, imagePath string) (*models.RunSummary, error) {
	if err := validateQueryImage(imagePath); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(imagePath)
	if err != nil {
		return nil, errs.Newf(errs.KindFilesystem, "failed to resolve image path: %v", err)
	}

	urls, err := s.harvestURLs(ctx, absPath)
	if err != nil {
		return nil, err
	}

	manager, err := storage.NewManager(s.config.Output.Directory)
	if err != nil {
		return nil, err
	}

	summary := &models.RunSummary{OutputDir: manager.OutputDir()}

	if len(urls) == 0 {
		s.logger.Warn("no image URLs harvested, nothing to download")
		return summary, nil
	}

	s.downloadAll(ctx, urls, manager, summary)

	s.logger.InfoWithFields("run complete", map[string]interface{}{
		"attempted": summary.Attempted,
		"succeeded": summary.Succeeded,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
		"output":    summary.OutputDir,
	})

	return summary, nil
}

// harvestURLs drives the browser phase: upload the query image, switch
// to similar results, expand the feed, extract URLs. The session is
// closed before this returns so the browser never outlives the phase
// that needs it.
func (s *Scraper) harvestURLs(ctx context.Context, imagePath string) ([]string, error) {
	session, err := s.newSession()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if err := session.Navigate(ctx, yandex.ImagesURL); err != nil {
		return nil, err
	}

	// The upload input usually exists without the dialog being open,
	// so a missed camera button is not yet fatal
	if err := session.Click(ctx, s.locators.CameraButton); err != nil {
		s.logger.WithError(err).Warn("camera button not found, trying direct upload")
	}

	if err := session.UploadFile(ctx, s.locators.FileInput, imagePath); err != nil {
		return nil, err
	}

	s.logger.InfoWithFields("query image uploaded", map[string]interface{}{
		"image": imagePath,
	})

	if err := retry.Wait(ctx, s.config.Feed.SettleInterval); err != nil {
		return nil, err
	}

	// Some result pages land on the similar-images feed directly
	if err := session.Click(ctx, s.locators.SimilarTab); err != nil {
		s.logger.Debug("similar tab not found, assuming results are already shown")
	} else {
		if err := retry.Wait(ctx, s.config.Feed.SettleInterval); err != nil {
			return nil, err
		}
	}

	expander := feed.NewExpander(session, s.locators, &s.config.Feed, s.logger)
	return expander.Expand(ctx, s.config.Feed.MaxScrollRounds)
}

// downloadAll pushes every URL through the worker pool and folds the
// records into the summary.
func (s *Scraper) downloadAll(ctx context.Context, urls []string, manager *storage.Manager, summary *models.RunSummary) {
	if s.onBatchStart != nil {
		s.onBatchStart(len(urls))
	}

	limiter := ratelimit.NewTokenBucket(s.config.RateLimit.RequestsPerMinute, time.Minute)

	pool := downloader.NewWorkerPool(
		ctx,
		s.config.Download.ConcurrentDownloads,
		s.fetcher,
		manager,
		limiter,
		s.config.Download.InterDownloadDelay,
		s.logger,
	)
	pool.Start()

	go func() {
		for _, u := range urls {
			if err := pool.Submit(downloader.Job{URL: u}); err != nil {
				break
			}
		}
		pool.Stop()
	}()

	for rec := range pool.Results() {
		summary.Add(rec)
		if s.onRecord != nil {
			s.onRecord(rec)
		}
		if rec.Outcome == models.OutcomeFailed {
			s.logger.WarnWithFields("url failed", map[string]interface{}{
				"url":   rec.URL,
				"error": rec.ErrorDetail,
			})
		}
	}
}

// validateQueryImage checks the query image exists and is readable
// before any browser work starts.
func validateQueryImage(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errs.Newf(errs.KindFilesystem, "query image %s: %v", path, err)
	}
	if info.IsDir() {
		return errs.Newf(errs.KindFilesystem, "query image %s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return errs.Newf(errs.KindFilesystem, "query image %s is not readable: %v", path, err)
	}
	f.Close()

	return nil
}

// retryingFetcher wraps the HTTP client with bounded retries for
// transient transport failures.
type retryingFetcher struct {
	client      *yandex.Client
	maxAttempts int
	logger      logger.Logger
}

func newRetryingFetcher(client *yandex.Client, maxAttempts int, log logger.Logger) *retryingFetcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retryingFetcher{
		client:      client,
		maxAttempts: maxAttempts,
		logger:      log,
	}
}

type fetchResult struct {
	data        []byte
	contentType string
}

func (f *retryingFetcher) FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	res, err := retry.DoWithResult(func() (fetchResult, error) {
		data, contentType, err := f.client.FetchImage(ctx, url)
		return fetchResult{data: data, contentType: contentType}, err
	}, retry.HTTPConfig(ctx, f.maxAttempts, f.logger))

	return res.data, res.contentType, err
}
