// internal/research/search/elasticsearch.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "research-workers/internal/common/errors"
	commonhttp "research-workers/internal/common/http"
	"research-workers/internal/common/logger"
)

// ElasticsearchClient searches an index of crawled pages. Documents need a
// link field; title and content are matched against the query.
type ElasticsearchClient struct {
	client     *elasticsearch.Client
	index      string
	maxResults int
	logger     logger.Logger
}

func NewElasticsearchClient(client *elasticsearch.Client, index string, maxResults int, log logger.Logger) *ElasticsearchClient {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &ElasticsearchClient{
		client:     client,
		index:      index,
		maxResults: maxResults,
		logger:     log,
	}
}

func (c *ElasticsearchClient) buildQuery(query string) map[string]interface{} {
	return map[string]interface{}{
		"size":    c.maxResults,
		"_source": []string{"link"},
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "content", "link"},
			},
		},
	}
}

// Search returns the link of each hit in score order.
func (c *ElasticsearchClient) Search(ctx context.Context, query string) ([]string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(c.buildQuery(query)); err != nil {
		return nil, apperrors.NewSearchProviderError(apperrors.CauseTransport, "failed to encode query", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.index},
		Body:  &buf,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		if commonhttp.IsTimeout(err) {
			return nil, apperrors.NewSearchProviderError(apperrors.CauseTimeout, "the search request timed out", err)
		}
		return nil, apperrors.NewSearchProviderError(apperrors.CauseTransport, "the search request failed", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		statusErr := apperrors.NewSearchStatusError(res.StatusCode)
		statusErr.Message = fmt.Sprintf("search on index %s failed with status %d", c.index, res.StatusCode)
		return nil, statusErr
	}

	var body struct {
		Hits struct {
			Hits []struct {
				Source struct {
					Link string `json:"link"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, apperrors.NewSearchProviderError(apperrors.CauseMalformedResponse, "failed to decode search results", err)
	}

	urls := make([]string, 0, len(body.Hits.Hits))
	for _, hit := range body.Hits.Hits {
		if hit.Source.Link != "" {
			urls = append(urls, hit.Source.Link)
		}
	}

	c.logger.Debug("elasticsearch search completed", map[string]interface{}{
		"index":       c.index,
		"query":       query,
		"resultCount": len(urls),
	})
	return urls, nil
}
