// Package fetch downloads single pages and reduces them to plain text.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"research-workers/internal/common/config"
	commonhttp "research-workers/internal/common/http"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
)

const DefaultTimeout = 3 * time.Second

type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetcher gets a page and extracts its text. It never fails: any problem
// yields an empty string and a warning.
type Fetcher struct {
	http      *commonhttp.Client
	extractor Extractor
	logger    logger.Logger
}

func New(cfg Config, extractor Extractor, log logger.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}
	if extractor == nil {
		extractor = TextExtractor{}
	}
	return &Fetcher{
		http:      commonhttp.NewClient(cfg.Timeout, commonhttp.WithUserAgent(cfg.UserAgent)),
		extractor: extractor,
		logger:    log,
	}
}

// NewFromConfig builds a fetcher from the research section.
func NewFromConfig(rc config.ResearchConfig, log logger.Logger) (*Fetcher, error) {
	extractor, err := ExtractorByName(rc.Extractor)
	if err != nil {
		return nil, err
	}
	return New(Config{
		Timeout:   config.GetDuration(rc.FetchTimeout),
		UserAgent: rc.UserAgent,
	}, extractor, log), nil
}

// Fetch returns the visible text of rawURL, or "" when the page cannot be
// fetched, is not a 200, or cannot be decoded.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) string {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		f.warn(rawURL, "invalid url", err)
		metrics.PageFetchesTotal.WithLabelValues("error").Inc()
		return ""
	}

	resp, err := f.http.Get(ctx, rawURL)
	if err != nil {
		f.warn(rawURL, "page request failed", err)
		metrics.PageFetchesTotal.WithLabelValues("error").Inc()
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("page returned non-200 status", map[string]interface{}{
			"url":        rawURL,
			"statusCode": resp.StatusCode,
		})
		metrics.PageFetchesTotal.WithLabelValues("status").Inc()
		return ""
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		f.warn(rawURL, "failed to read page body", err)
		metrics.PageFetchesTotal.WithLabelValues("error").Inc()
		return ""
	}

	doc, err := decodeBody(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		f.warn(rawURL, "failed to decode page", err)
		metrics.PageFetchesTotal.WithLabelValues("error").Inc()
		return ""
	}

	text, err := f.extractor.Extract(doc, pageURL)
	if err != nil {
		f.warn(rawURL, "failed to extract page text", err)
		metrics.PageFetchesTotal.WithLabelValues("error").Inc()
		return ""
	}

	if text == "" {
		metrics.PageFetchesTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.PageFetchesTotal.WithLabelValues("ok").Inc()
	}
	return text
}

// Release drops pooled connections after a fan-out.
func (f *Fetcher) Release() {
	f.http.CloseIdleConnections()
}

func (f *Fetcher) warn(rawURL, msg string, err error) {
	f.logger.Warn(msg, map[string]interface{}{
		"url":   rawURL,
		"error": err.Error(),
	})
}
