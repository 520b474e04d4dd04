package summarizecontext

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-workers/internal/common/camunda/camundatest"
	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"
	"research-workers/internal/research/pipeline"
	"research-workers/internal/research/researchtest"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, llmURL string) *Handler {
	cfg := researchtest.Config(t, llmURL, "http://127.0.0.1:1", "")
	cfg.Research.ChunkSize = 10
	cfg.Research.MaxContextChars = 12

	p, err := pipeline.NewFromConfig(cfg, pipeline.Dependencies{Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	h, err := NewHandler(HandlerOptions{
		AppConfig:  cfg,
		Summarizer: p,
		Logger:     logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

// ==========================
// Execute Tests
// ==========================

func TestExecute_SummarizesAndTruncates(t *testing.T) {
	llmSrv := researchtest.NewLLMServer(t, func(call researchtest.ChatCall) (string, int) {
		return strings.ToUpper(call.User[:2]), http.StatusOK
	})

	h := createTestHandler(t, llmSrv.URL)
	out, err := h.Execute(context.Background(), &Input{
		Context: strings.Repeat("a", 10) + strings.Repeat("b", 10) + strings.Repeat("c", 10) + strings.Repeat("d", 10),
		Prompt:  "letters?",
	})
	require.NoError(t, err)

	assert.Equal(t, "AABBCCDD", out.Summary)
	assert.Equal(t, 8, out.SummaryChars)
	assert.False(t, out.Truncated)

	calls := llmSrv.CallsFor(researchtest.StageSummary)
	require.Len(t, calls, 4)
	assert.True(t, strings.HasSuffix(calls[0].System, `Original question: "letters?"`))
}

func TestExecute_TruncatesLongSummary(t *testing.T) {
	llmSrv := researchtest.NewLLMServer(t, func(call researchtest.ChatCall) (string, int) {
		return "0123456789", http.StatusOK
	})

	out, err := createTestHandler(t, llmSrv.URL).Execute(context.Background(), &Input{
		Context: strings.Repeat("x", 20),
		Prompt:  "q",
	})
	require.NoError(t, err)
	assert.Equal(t, "012345678901", out.Summary)
	assert.Equal(t, 12, out.SummaryChars)
	assert.True(t, out.Truncated)
}

// ==========================
// Handle Tests
// ==========================

func TestHandle_PartialFailureStillCompletes(t *testing.T) {
	llmSrv := researchtest.NewLLMServer(t, func(call researchtest.ChatCall) (string, int) {
		if strings.HasPrefix(call.User, "b") {
			return "", http.StatusInternalServerError
		}
		return call.User[:1], http.StatusOK
	})

	client := camundatest.NewJobClient()
	createTestHandler(t, llmSrv.URL).Handle(client, camundatest.NewJob(41, TaskType, 3, map[string]interface{}{
		"context": strings.Repeat("a", 10) + strings.Repeat("b", 10) + strings.Repeat("c", 10),
		"prompt":  "q",
	}))

	require.Len(t, client.Completed, 1)
	assert.Equal(t, "ac", client.CompletedVariables()["summary"])
}

func TestHandle_AllChunksFail(t *testing.T) {
	llmSrv := researchtest.NewLLMServer(t, func(call researchtest.ChatCall) (string, int) {
		return "", http.StatusUnauthorized
	})

	client := camundatest.NewJobClient()
	createTestHandler(t, llmSrv.URL).Handle(client, camundatest.NewJob(42, TaskType, 3, map[string]interface{}{
		"context": "some page text",
		"prompt":  "q",
	}))

	assert.Empty(t, client.Completed)
	require.Len(t, client.Thrown, 1)
	assert.Equal(t, "LLM_PROVIDER_ERROR", client.Thrown[0].ErrorCode)
}

func TestHandle_MissingPrompt(t *testing.T) {
	client := camundatest.NewJobClient()
	h := createTestHandler(t, "http://127.0.0.1:1")
	h.Handle(client, camundatest.NewJob(43, TaskType, 3, map[string]interface{}{"context": "text"}))

	require.Len(t, client.Thrown, 1)
	assert.Equal(t, "INVALID_INPUT", client.Thrown[0].ErrorCode)
	assert.Contains(t, client.Thrown[0].ErrorMessage, "prompt")
}

func TestNewHandler_UsesWorkerConfig(t *testing.T) {
	appCfg := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: true, MaxJobsActive: 2, Timeout: 90000},
	}}

	h, err := NewHandler(HandlerOptions{AppConfig: appCfg, Summarizer: &pipeline.Pipeline{}})
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, h.config.Timeout)
	assert.Equal(t, 2, h.config.MaxJobsActive)
}

func TestNewHandler_RequiresSummarizer(t *testing.T) {
	_, err := NewHandler(HandlerOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summarizer")

	_, err = NewHandler(HandlerOptions{
		CustomConfig: &Config{Enabled: true, MaxJobsActive: 1},
		Summarizer:   &pipeline.Pipeline{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout must be positive")
}
