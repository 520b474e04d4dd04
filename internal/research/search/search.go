// Package search turns a search query into an ordered list of result URLs.
package search

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"
)

// Searcher returns result URLs in provider ranking order. Every failure is a
// SEARCH_PROVIDER_ERROR.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// New selects the provider named in apis.web_search.provider. es is only
// needed for the elasticsearch provider.
func New(cfg *config.Config, es *elasticsearch.Client, log logger.Logger) (Searcher, error) {
	ws := cfg.APIs.WebSearch
	switch ws.Provider {
	case "", config.ProviderGoogle:
		return NewGoogleClient(GoogleConfig{
			BaseURL:   ws.BaseURL,
			APIKey:    ws.APIKey,
			EngineID:  ws.EngineID,
			UserAgent: cfg.Research.UserAgent,
			Timeout:   config.GetDuration(ws.Timeout),
		}, log), nil
	case config.ProviderElasticsearch:
		if es == nil {
			return nil, fmt.Errorf("elasticsearch search provider needs an elasticsearch client")
		}
		return NewElasticsearchClient(es, ws.Index, ws.MaxResults, log), nil
	}
	return nil, fmt.Errorf("unknown search provider %q", ws.Provider)
}
