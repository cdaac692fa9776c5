package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"yxscraper/pkg/logger"
	"yxscraper/pkg/models"
	"yxscraper/pkg/ratelimit"
	"yxscraper/pkg/retry"
)

// Job is a single URL to download.
type Job struct {
	URL string
}

// ImageFetcher fetches an image resource, returning body and
// Content-Type.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}

// Store persists fetched images and answers duplicate checks.
type Store interface {
	IsDownloaded(url string) bool
	Save(url, contentType string, r io.Reader) (string, error)
}

// WorkerPool downloads URLs concurrently with a bounded number of
// workers. Each URL is processed independently: duplicates are
// skipped before any network I/O, and a failure never aborts the
// batch. Content-addressed filenames plus atomic renames keep the
// parallel writes race-free per target path.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan models.DownloadRecord
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     ImageFetcher
	store       Store
	rateLimiter ratelimit.Limiter
	delay       time.Duration
	logger      logger.Logger
}

// NewWorkerPool creates a download worker pool. delay is the fixed
// pause each worker inserts after a network fetch to stay within
// informal rate limits.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	fetcher ImageFetcher,
	store Store,
	rateLimiter ratelimit.Limiter,
	delay time.Duration,
	log logger.Logger,
) *WorkerPool {
	poolCtx, cancel := context.WithCancel(ctx)

	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan models.DownloadRecord, numWorkers),
		ctx:         poolCtx,
		cancel:      cancel,
		fetcher:     fetcher,
		store:       store,
		rateLimiter: rateLimiter,
		delay:       delay,
		logger:      log,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("starting download workers", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs to finish, then
// closes the result channel.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit adds a download job to the queue.
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the channel of per-URL download records.
func (wp *WorkerPool) Results() <-chan models.DownloadRecord {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		// Cancellation is honored between downloads, not mid-request
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		record := wp.processJob(job, id)

		select {
		case wp.resultQueue <- record:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob handles a single URL.
func (wp *WorkerPool) processJob(job Job, workerID int) models.DownloadRecord {
	start := time.Now()
	record := models.DownloadRecord{URL: job.URL}

	if wp.store.IsDownloaded(job.URL) {
		wp.logger.DebugWithFields("skipping already downloaded URL", map[string]interface{}{
			"worker_id": workerID,
			"url":       job.URL,
		})
		record.Outcome = models.OutcomeSkipped
		record.Duration = time.Since(start)
		return record
	}

	if wp.rateLimiter != nil && !wp.rateLimiter.Allow() {
		wp.rateLimiter.Wait()
	}

	data, contentType, err := wp.fetcher.FetchImage(wp.ctx, job.URL)
	if err != nil {
		record.Outcome = models.OutcomeFailed
		record.ErrorDetail = err.Error()
		record.Duration = time.Since(start)

		wp.logger.ErrorWithFields("download failed", map[string]interface{}{
			"worker_id": workerID,
			"url":       job.URL,
			"error":     err.Error(),
		})

		wp.pace()
		return record
	}

	record.Size = len(data)

	filename, err := wp.store.Save(job.URL, contentType, bytes.NewReader(data))
	if err != nil {
		record.Outcome = models.OutcomeFailed
		record.ErrorDetail = err.Error()
		record.Duration = time.Since(start)

		wp.logger.ErrorWithFields("save failed", map[string]interface{}{
			"worker_id": workerID,
			"url":       job.URL,
			"error":     err.Error(),
		})

		wp.pace()
		return record
	}

	record.Filename = filename
	record.Outcome = models.OutcomeSuccess
	record.Duration = time.Since(start)

	wp.logger.DebugWithFields("download complete", map[string]interface{}{
		"worker_id": workerID,
		"url":       job.URL,
		"filename":  filename,
		"size":      record.Size,
	})

	wp.pace()
	return record
}

// pace inserts the fixed inter-download delay. Tunable, not a
// correctness requirement.
func (wp *WorkerPool) pace() {
	if wp.delay > 0 {
		_ = retry.Wait(wp.ctx, wp.delay)
	}
}
