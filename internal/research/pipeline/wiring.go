// internal/research/pipeline/wiring.go
package pipeline

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/observability"
	"research-workers/internal/research/aggregate"
	"research-workers/internal/research/fetch"
	"research-workers/internal/research/llm"
	"research-workers/internal/research/pacing"
	"research-workers/internal/research/search"
	"research-workers/internal/research/summarize"
)

// Dependencies are the shared connections a pipeline may need. Redis is used
// only for the redis pacing backend, Elasticsearch only for the
// elasticsearch search provider.
type Dependencies struct {
	Logger        logger.Logger
	Redis         redis.Cmdable
	Elasticsearch *elasticsearch.Client
	Observability *observability.Observability
}

func NewFromConfig(cfg *config.Config, deps Dependencies) (*Pipeline, error) {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	client := llm.NewClient(llm.Config{
		BaseURL: cfg.APIs.LLM.BaseURL,
		APIKey:  cfg.APIs.LLM.APIKey,
		Timeout: config.GetDuration(cfg.APIs.LLM.Timeout),
	}, log)

	searcher, err := search.New(cfg, deps.Elasticsearch, log)
	if err != nil {
		return nil, err
	}

	fetcher, err := fetch.NewFromConfig(cfg.Research, log)
	if err != nil {
		return nil, err
	}

	pacer, err := pacing.NewFromConfig(cfg.Research, deps.Redis)
	if err != nil {
		return nil, err
	}

	models := cfg.Research.Models
	querySettings, err := llm.FromModelConfig(models.Query)
	if err != nil {
		return nil, fmt.Errorf("query model: %w", err)
	}
	summarySettings, err := llm.FromModelConfig(models.Summary)
	if err != nil {
		return nil, fmt.Errorf("summary model: %w", err)
	}
	answerSettings, err := llm.FromModelConfig(models.Answer)
	if err != nil {
		return nil, fmt.Errorf("answer model: %w", err)
	}

	return New(Options{
		LLM:             client,
		Searcher:        searcher,
		Gatherer:        aggregate.New(fetcher, log),
		Summarizer:      summarize.New(client, summarySettings, pacer, cfg.Research.ChunkSize, log),
		QuerySettings:   querySettings,
		AnswerSettings:  answerSettings,
		MaxContextChars: cfg.Research.MaxContextChars,
		Observability:   deps.Observability,
		Logger:          log,
	}), nil
}
