// Package aggregate fetches every search result concurrently and joins the
// page texts in result order.
package aggregate

import (
	"context"
	"strings"

	"github.com/sourcegraph/conc/iter"

	apperrors "research-workers/internal/common/errors"
	"research-workers/internal/common/logger"
)

const emptyResultMessage = "Failed to extract text from the provided URLs."

// PageFetcher returns the text of one page, "" on any failure.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) string
}

type releaser interface {
	Release()
}

type AggregateResult struct {
	Text      string
	Pages     int
	Succeeded int
}

type Aggregator struct {
	fetcher PageFetcher
	logger  logger.Logger
}

func New(fetcher PageFetcher, log logger.Logger) *Aggregator {
	return &Aggregator{fetcher: fetcher, logger: log}
}

// Aggregate returns the concatenated text of all pages.
func (a *Aggregator) Aggregate(ctx context.Context, urls []string) (string, error) {
	res, err := a.AggregateDetailed(ctx, urls)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// AggregateDetailed fetches all urls at once and joins the texts, without a
// separator, in the order of urls. It fails only when nothing was extracted.
func (a *Aggregator) AggregateDetailed(ctx context.Context, urls []string) (*AggregateResult, error) {
	if len(urls) == 0 {
		return nil, apperrors.NewContentExtractionError(emptyResultMessage)
	}
	if r, ok := a.fetcher.(releaser); ok {
		defer r.Release()
	}

	mapper := iter.Mapper[string, string]{MaxGoroutines: len(urls)}
	texts := mapper.Map(urls, func(u *string) string {
		return a.fetcher.Fetch(ctx, *u)
	})

	var b strings.Builder
	succeeded := 0
	for _, text := range texts {
		if text != "" {
			succeeded++
			b.WriteString(text)
		}
	}

	a.logger.Info("aggregated page text", map[string]interface{}{
		"pages":     len(urls),
		"succeeded": succeeded,
		"chars":     b.Len(),
	})

	if b.Len() == 0 {
		return nil, apperrors.NewContentExtractionError(emptyResultMessage)
	}
	return &AggregateResult{Text: b.String(), Pages: len(urls), Succeeded: succeeded}, nil
}
