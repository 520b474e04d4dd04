// Package pipeline runs the research stages in order: query generation, web
// search, page gathering, chunked summarization and the final answer.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "research-workers/internal/common/errors"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/common/observability"
	"research-workers/internal/research/aggregate"
	"research-workers/internal/research/llm"
	"research-workers/internal/research/search"
)

const DefaultMaxContextChars = 50000

// Stage names used for spans and metrics.
const (
	StageQuery     = "query"
	StageSearch    = "search"
	StageFetch     = "fetch"
	StageSummarize = "summarize"
	StageAnswer    = "answer"
)

type Completer interface {
	Complete(ctx context.Context, prompt string, settings llm.Settings) (*llm.Response, error)
}

type Gatherer interface {
	AggregateDetailed(ctx context.Context, urls []string) (*aggregate.AggregateResult, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text, prompt string) (string, error)
}

type Options struct {
	LLM             Completer
	Searcher        search.Searcher
	Gatherer        Gatherer
	Summarizer      Summarizer
	QuerySettings   llm.Settings
	AnswerSettings  llm.Settings
	MaxContextChars int
	Observability   *observability.Observability
	Logger          logger.Logger
}

// Result is everything one run produced.
type Result struct {
	RunID          string
	Query          string
	URLs           []string
	PagesFetched   int // URLs attempted
	PagesSucceeded int // pages that contributed text
	Summary        string
	Answer         string
}

// Pipeline is safe for concurrent runs.
type Pipeline struct {
	llm             Completer
	searcher        search.Searcher
	gatherer        Gatherer
	summarizer      Summarizer
	querySettings   llm.Settings
	answerSettings  llm.Settings
	maxContextChars int
	obs             *observability.Observability
	logger          logger.Logger
}

func New(opts Options) *Pipeline {
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = DefaultMaxContextChars
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Pipeline{
		llm:             opts.LLM,
		searcher:        opts.Searcher,
		gatherer:        opts.Gatherer,
		summarizer:      opts.Summarizer,
		querySettings:   opts.QuerySettings,
		answerSettings:  opts.AnswerSettings,
		maxContextChars: opts.MaxContextChars,
		obs:             opts.Observability,
		logger:          opts.Logger,
	}
}

// WithAnswerOverrides returns a copy whose answer settings have overrides
// applied. The receiver is unchanged.
func (p *Pipeline) WithAnswerOverrides(overrides map[string]interface{}) (*Pipeline, error) {
	if len(overrides) == 0 {
		return p, nil
	}
	cp := *p
	cp.answerSettings.Messages = append([]llm.Message(nil), p.answerSettings.Messages...)
	if err := cp.answerSettings.Apply(overrides, p.logger); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	return &cp, nil
}

// GetResponse runs the pipeline and returns only the answer.
func (p *Pipeline) GetResponse(ctx context.Context, prompt string) (string, error) {
	res, err := p.Run(ctx, prompt)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// Run executes every stage. The first stage error ends the run.
func (p *Pipeline) Run(ctx context.Context, prompt string) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	start := time.Now()

	ctx, span := p.obs.StartSpan(ctx, "research.run", attribute.String("research.run_id", res.RunID))
	defer span.End()

	log := p.logger.With(map[string]interface{}{"runId": res.RunID})
	log.Info("research run started", map[string]interface{}{"promptChars": len(prompt)})

	err := p.run(ctx, prompt, res)

	outcome := "success"
	if err != nil {
		outcome = "error"
		kind := string(apperrors.KindOf(err))
		if kind == "" {
			kind = "UNEXPECTED"
		}
		metrics.PipelineErrorsTotal.WithLabelValues(kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("research run failed", map[string]interface{}{
			"error":    err.Error(),
			"kind":     kind,
			"duration": time.Since(start).String(),
		})
	} else {
		log.Info("research run completed", map[string]interface{}{
			"query":          res.Query,
			"urls":           len(res.URLs),
			"pagesFetched":   res.PagesFetched,
			"pagesSucceeded": res.PagesSucceeded,
			"summaryChars":   len(res.Summary),
			"duration":       time.Since(start).String(),
		})
	}
	p.obs.RecordRun(ctx, outcome)
	p.obs.RecordRunDuration(ctx, time.Since(start), outcome)

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, prompt string, res *Result) error {
	if err := checkPrompt(prompt); err != nil {
		return err
	}

	query, err := p.GenerateSearchQuery(ctx, prompt)
	if err != nil {
		return err
	}
	res.Query = query

	urls, err := p.Search(ctx, query)
	if err != nil {
		return err
	}
	res.URLs = urls

	gathered, err := p.Gather(ctx, urls)
	if err != nil {
		return err
	}
	res.PagesFetched = gathered.Pages
	res.PagesSucceeded = gathered.Succeeded

	summary, _, err := p.Summarize(ctx, gathered.Text, prompt)
	if err != nil {
		return err
	}
	res.Summary = summary

	answer, err := p.Answer(ctx, prompt, summary)
	if err != nil {
		return err
	}
	res.Answer = answer
	return nil
}

// GenerateSearchQuery rewrites prompt as a single search query with all
// double quotes removed.
func (p *Pipeline) GenerateSearchQuery(ctx context.Context, prompt string) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}
	var query string
	err := p.stage(ctx, StageQuery, func(ctx context.Context) error {
		resp, err := p.llm.Complete(ctx, prompt, p.querySettings.WithSystem(QueryInstruction))
		if err != nil {
			return err
		}
		query = strings.TrimSpace(strings.ReplaceAll(resp.Content(), `"`, ""))
		if query == "" {
			return apperrors.NewLLMProviderError(apperrors.CauseMalformedResponse, "the model returned an empty search query", nil)
		}
		return nil
	})
	return query, err
}

func (p *Pipeline) Search(ctx context.Context, query string) ([]string, error) {
	var urls []string
	err := p.stage(ctx, StageSearch, func(ctx context.Context) error {
		var err error
		urls, err = p.searcher.Search(ctx, query)
		return err
	})
	return urls, err
}

func (p *Pipeline) Gather(ctx context.Context, urls []string) (*aggregate.AggregateResult, error) {
	var res *aggregate.AggregateResult
	err := p.stage(ctx, StageFetch, func(ctx context.Context) error {
		var err error
		res, err = p.gatherer.AggregateDetailed(ctx, urls)
		return err
	})
	return res, err
}

// Summarize condenses text and cuts the summary to the context limit.
func (p *Pipeline) Summarize(ctx context.Context, text, prompt string) (string, bool, error) {
	var summary string
	var truncated bool
	err := p.stage(ctx, StageSummarize, func(ctx context.Context) error {
		full, err := p.summarizer.Summarize(ctx, text, prompt)
		if err != nil {
			return err
		}
		summary = Truncate(full, p.maxContextChars)
		truncated = len(summary) < len(full)
		return nil
	})
	return summary, truncated, err
}

// Answer asks the model the original prompt with summary as context.
func (p *Pipeline) Answer(ctx context.Context, prompt, summary string) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}
	var answer string
	err := p.stage(ctx, StageAnswer, func(ctx context.Context) error {
		resp, err := p.llm.Complete(ctx, prompt, p.answerSettings.WithSystem(AnswerInstruction(summary)))
		if err != nil {
			return err
		}
		answer = resp.Content()
		if strings.TrimSpace(answer) == "" {
			return apperrors.NewLLMProviderError(apperrors.CauseMalformedResponse, "the model returned an empty answer", nil)
		}
		return nil
	})
	return answer, err
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := p.obs.StartSpan(ctx, "research."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.ResearchStageDuration.WithLabelValues(name, outcome).Observe(time.Since(start).Seconds())
	return err
}

func checkPrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return &apperrors.PipelineError{Kind: apperrors.KindConfiguration, Message: "prompt is required", Missing: []string{"prompt"}}
	}
	return nil
}
