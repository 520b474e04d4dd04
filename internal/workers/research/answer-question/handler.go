package answerquestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"research-workers/internal/common/config"
	"research-workers/internal/common/errors"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/common/validation"
	"research-workers/internal/research/pipeline"
)

const TaskType = "research-answer-question"

type Handler struct {
	config       *Config
	pipeline     *pipeline.Pipeline
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Pipeline     *pipeline.Pipeline
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("%s needs a research pipeline", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.With(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:       workerConfig,
		pipeline:     opts.Pipeline,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	var output *Output
	if err == nil {
		output, err = h.Execute(ctx, input)
	}
	if err != nil {
		code := h.errorHandler.HandleJobError(context.Background(), client, job, err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("failed to parse job variables: %v", err))
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}

	input := &Input{Prompt: variables["prompt"].(string)}
	if summary, ok := variables["summary"].(string); ok {
		input.Summary = &summary
	}
	if settings, ok := variables["modelSettings"].(map[string]interface{}); ok {
		input.ModelSettings = settings
	}
	if query, ok := variables["searchQuery"].(string); ok {
		input.SearchQuery = query
	}
	if raw, ok := variables["urls"].([]interface{}); ok {
		input.URLs = make([]string, 0, len(raw))
		for _, u := range raw {
			input.URLs = append(input.URLs, u.(string))
		}
	}
	return input, nil
}

// Execute runs the full pipeline, or only the answer stage when the job
// already carries a summary.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	p, err := h.pipeline.WithAnswerOverrides(input.ModelSettings)
	if err != nil {
		return nil, err
	}

	if input.Summary != nil {
		answer, err := p.Answer(ctx, input.Prompt, *input.Summary)
		if err != nil {
			return nil, err
		}
		urls := input.URLs
		if urls == nil {
			urls = []string{}
		}
		return &Output{
			Answer:      answer,
			SearchQuery: input.SearchQuery,
			URLs:        urls,
			RunID:       uuid.NewString(),
		}, nil
	}

	res, err := p.Run(ctx, input.Prompt)
	if err != nil {
		return nil, err
	}

	urls := res.URLs
	if urls == nil {
		urls = []string{}
	}
	h.logger.Info("research run completed", map[string]interface{}{
		"runId":          res.RunID,
		"searchQuery":    res.Query,
		"pagesFetched":   res.PagesFetched,
		"pagesSucceeded": res.PagesSucceeded,
	})
	return &Output{
		Answer:      res.Answer,
		SearchQuery: res.Query,
		URLs:        urls,
		RunID:       res.RunID,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
	}
}

func (h *Handler) GetTaskType() string {
	return TaskType
}
