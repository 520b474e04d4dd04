package extractpagetext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-workers/internal/common/camunda/camundatest"
	"research-workers/internal/common/logger"
	"research-workers/internal/research/aggregate"
	"research-workers/internal/research/fetch"
	"research-workers/internal/research/researchtest"
)

// ==========================
// Test Helper Functions
// ==========================

// aggregatorGatherer adapts an Aggregator the way the pipeline does.
type aggregatorGatherer struct {
	agg *aggregate.Aggregator
}

func (g aggregatorGatherer) Gather(ctx context.Context, urls []string) (*aggregate.AggregateResult, error) {
	return g.agg.AggregateDetailed(ctx, urls)
}

func createTestHandler(t *testing.T) *Handler {
	fetcher := fetch.New(fetch.Config{Timeout: time.Second}, fetch.TextExtractor{}, logger.NewTestLogger(t))
	h, err := NewHandler(HandlerOptions{
		CustomConfig: &Config{Enabled: true, MaxJobsActive: 2, Timeout: 5 * time.Second},
		Gatherer:     aggregatorGatherer{agg: aggregate.New(fetcher, logger.NewTestLogger(t))},
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

// ==========================
// Execute Tests
// ==========================

func TestExecute_JoinsPagesInOrder(t *testing.T) {
	pages := researchtest.NewPageServer(t, map[string]string{
		"/a": researchtest.Page("Alpha"),
		"/b": researchtest.Page("Beta"),
	})

	out, err := createTestHandler(t).Execute(context.Background(), &Input{URLs: []string{
		pages.URL + "/b", pages.URL + "/missing", pages.URL + "/a",
	}})
	require.NoError(t, err)
	assert.Equal(t, "BetaAlpha", out.Context)
	assert.Equal(t, 9, out.ContextChars)
	assert.Equal(t, 3, out.PagesFetched)
	assert.Equal(t, 2, out.PagesSucceeded)
}

// ==========================
// Handle Tests
// ==========================

func TestHandle_CompletesWithContext(t *testing.T) {
	pages := researchtest.NewPageServer(t, map[string]string{"/a": researchtest.Page("Alpha")})
	client := camundatest.NewJobClient()

	createTestHandler(t).Handle(client, camundatest.NewJob(31, TaskType, 3, map[string]interface{}{
		"urls": []string{pages.URL + "/a"},
	}))

	require.Len(t, client.Completed, 1)
	vars := client.CompletedVariables()
	assert.Equal(t, "Alpha", vars["context"])
	assert.EqualValues(t, 1, vars["pagesSucceeded"])
}

func TestHandle_NothingExtracted(t *testing.T) {
	tests := []struct {
		name string
		urls []string
	}{
		{name: "no urls", urls: []string{}},
		{name: "every page fails", urls: []string{"http://127.0.0.1:1/a", "http://127.0.0.1:1/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := camundatest.NewJobClient()
			createTestHandler(t).Handle(client, camundatest.NewJob(32, TaskType, 3, map[string]interface{}{
				"urls": tt.urls,
			}))

			assert.Empty(t, client.Completed)
			require.Len(t, client.Thrown, 1)
			assert.Equal(t, "CONTENT_EXTRACTION_ERROR", client.Thrown[0].ErrorCode)
			assert.Contains(t, client.Thrown[0].ErrorMessage, "Failed to extract text from the provided URLs.")
		})
	}
}

func TestHandle_InvalidInput(t *testing.T) {
	client := camundatest.NewJobClient()
	createTestHandler(t).Handle(client, camundatest.NewJob(33, TaskType, 3, map[string]interface{}{
		"urls": "https://not-a-list.example",
	}))

	require.Len(t, client.Thrown, 1)
	assert.Equal(t, "INVALID_INPUT", client.Thrown[0].ErrorCode)
}
