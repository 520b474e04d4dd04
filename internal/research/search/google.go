// internal/research/search/google.go
package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	apperrors "research-workers/internal/common/errors"
	commonhttp "research-workers/internal/common/http"
	"research-workers/internal/common/logger"
)

const DefaultGoogleURL = "https://www.googleapis.com/customsearch/v1"

type GoogleConfig struct {
	BaseURL   string
	APIKey    string
	EngineID  string // cx
	UserAgent string
	Timeout   time.Duration
}

// GoogleClient queries the Custom Search JSON API.
type GoogleClient struct {
	config GoogleConfig
	http   *commonhttp.Client
	logger logger.Logger
}

func NewGoogleClient(cfg GoogleConfig, log logger.Logger) *GoogleClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGoogleURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &GoogleClient{
		config: cfg,
		http:   commonhttp.NewClient(cfg.Timeout, commonhttp.WithUserAgent(cfg.UserAgent)),
		logger: log,
	}
}

type googleResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

// Search returns the result links in provider order. A response without
// items means no hits.
func (c *GoogleClient) Search(ctx context.Context, query string) ([]string, error) {
	endpoint, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, apperrors.NewSearchProviderError(apperrors.CauseTransport, "invalid search endpoint", err)
	}
	params := endpoint.Query()
	params.Set("q", query)
	params.Set("key", c.config.APIKey)
	params.Set("cx", c.config.EngineID)
	endpoint.RawQuery = params.Encode()

	resp, err := c.http.Get(ctx, endpoint.String())
	if err != nil {
		if commonhttp.IsTimeout(err) {
			return nil, apperrors.NewSearchProviderError(apperrors.CauseTimeout, "the search request timed out", err)
		}
		return nil, apperrors.NewSearchProviderError(apperrors.CauseTransport, "the search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewSearchStatusError(resp.StatusCode)
	}

	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if commonhttp.IsTimeout(err) {
			return nil, apperrors.NewSearchProviderError(apperrors.CauseTimeout, "timed out reading search results", err)
		}
		return nil, apperrors.NewSearchProviderError(apperrors.CauseMalformedResponse, "failed to decode search results", err)
	}

	urls := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		urls = append(urls, item.Link)
	}

	c.logger.Debug("google search completed", map[string]interface{}{
		"query":       query,
		"resultCount": len(urls),
	})
	return urls, nil
}
