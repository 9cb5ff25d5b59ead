package fetcher

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/prevostgo/prevostgo/internal/logger"
)

// Listing sources are plain server-rendered pages, so a desktop Chrome
// user agent is enough to be served the same markup a browser sees.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StaticConfig holds configuration for the static fetcher.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		UserAgent: defaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// Static fetches static HTML using Colly. It implements Fetcher.
type Static struct {
	config StaticConfig
}

// NewStatic creates a static fetcher.
func NewStatic(cfg StaticConfig) *Static {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultStaticConfig().Timeout
	}
	return &Static{config: cfg}
}

// Fetch retrieves page content from targetURL.
func (f *Static) Fetch(ctx context.Context, targetURL string) (Content, error) {
	if err := ctx.Err(); err != nil {
		return Content{}, &FetchError{URL: targetURL, Reason: ReasonNetwork, Err: err}
	}

	logger.Debug("fetch starting", "url", targetURL)

	result := Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	// A fresh collector per request keeps fetches independent.
	c := colly.NewCollector(colly.UserAgent(f.config.UserAgent))
	c.SetRequestTimeout(f.config.Timeout)

	var fetchErr *FetchError

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.HTML = string(r.Body)
		logger.Debug("fetch response received",
			"url", targetURL,
			"status", r.StatusCode,
			"body_size", len(r.Body))
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = classify(targetURL, r, err)
		if r != nil {
			result.StatusCode = r.StatusCode
		}
	})

	if err := c.Visit(targetURL); err != nil && fetchErr == nil {
		fetchErr = classify(targetURL, nil, err)
	}

	if fetchErr != nil {
		logger.Debug("fetch failed", "url", targetURL, "reason", fetchErr.Reason)
		return result, fetchErr
	}

	logger.Debug("fetch complete", "url", targetURL, "status", result.StatusCode)
	return result, nil
}

// classify maps a colly failure onto the fetch error taxonomy.
func classify(url string, r *colly.Response, err error) *FetchError {
	if r != nil && r.StatusCode > 0 {
		return &FetchError{URL: url, Reason: ReasonHTTPStatus, Status: r.StatusCode, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{URL: url, Reason: ReasonTimeout, Err: err}
	}
	return &FetchError{URL: url, Reason: ReasonNetwork, Err: err}
}
