package yandex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "yxscraper/pkg/errors"
	"yxscraper/pkg/logger"
)

// Client fetches image resources over HTTP with a realistic browser
// header set. Image hosts routinely reject unidentified clients, so
// the headers are not optional decoration.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a client with the given per-request timeout.
func NewClient(timeout time.Duration, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "image/avif,image/webp,image/apng,image/*,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Referer":         ImagesURL,
		},
		logger: log,
	}
}

// SetHeader sets a custom header for the client.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// FetchImage downloads the resource at the given URL and returns the
// body plus the response Content-Type. Transport errors, timeouts and
// non-success statuses come back as typed transport errors.
func (c *Client) FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", errs.Newf(errs.KindTransport, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("fetching image", map[string]interface{}{
		"url": url,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugWithFields("image fetch failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, "", errs.Newf(errs.KindTransport, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		c.logger.DebugWithFields("image fetch rejected", map[string]interface{}{
			"url":    url,
			"status": resp.StatusCode,
		})
		return nil, "", err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errs.Newf(errs.KindTransport, "failed to read response body: %v", err)
	}

	c.logger.DebugWithFields("image fetched", map[string]interface{}{
		"url":      url,
		"size":     len(data),
		"duration": time.Since(start),
	})

	return data, resp.Header.Get("Content-Type"), nil
}

// checkStatus maps an HTTP status to the error taxonomy.
func checkStatus(statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusTooManyRequests:
		return errs.WithCode(errs.KindRateLimit, statusCode, "rate limit exceeded")
	default:
		return errs.WithCode(errs.KindTransport, statusCode,
			fmt.Sprintf("unexpected status %d", statusCode))
	}
}
