package websearch

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-workers/internal/common/camunda/camundatest"
	"research-workers/internal/common/config"
	"research-workers/internal/common/errors"
	"research-workers/internal/common/logger"
	"research-workers/internal/research/researchtest"
	"research-workers/internal/research/search"
)

// ==========================
// Test Helper Functions
// ==========================

type stubSearcher struct {
	urls  []string
	err   error
	query string
}

func (s *stubSearcher) Search(ctx context.Context, query string) ([]string, error) {
	s.query = query
	return s.urls, s.err
}

func createTestHandler(t *testing.T, s Searcher) *Handler {
	h, err := NewHandler(HandlerOptions{
		CustomConfig: &Config{Enabled: true, MaxJobsActive: 2, Timeout: 5 * time.Second},
		Searcher:     s,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

// ==========================
// Execute Tests
// ==========================

func TestExecute_NoResultsIsEmptyList(t *testing.T) {
	out, err := createTestHandler(t, &stubSearcher{}).Execute(context.Background(), &Input{SearchQuery: "zzzz"})
	require.NoError(t, err)
	assert.NotNil(t, out.URLs)
	assert.Empty(t, out.URLs)
	assert.Zero(t, out.ResultCount)
}

func TestExecute_WithGoogleProvider(t *testing.T) {
	server := researchtest.NewSearchServer(t, "https://a.example", "https://b.example")
	google := search.NewGoogleClient(search.GoogleConfig{
		BaseURL:   server.URL,
		APIKey:    "k",
		EngineID:  "cx",
		UserAgent: config.DefaultUserAgent,
	}, logger.NewTestLogger(t))

	out, err := createTestHandler(t, google).Execute(context.Background(), &Input{SearchQuery: "paris weather"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, out.URLs)
	assert.Equal(t, 2, out.ResultCount)
}

// ==========================
// Handle Tests
// ==========================

func TestHandle_CompletesWithURLs(t *testing.T) {
	s := &stubSearcher{urls: []string{"https://a.example"}}
	client := camundatest.NewJobClient()

	createTestHandler(t, s).Handle(client, camundatest.NewJob(21, TaskType, 3, map[string]interface{}{
		"prompt":      "ignored by this worker",
		"searchQuery": "paris weather",
	}))

	require.Len(t, client.Completed, 1)
	vars := client.CompletedVariables()
	assert.Equal(t, []interface{}{"https://a.example"}, vars["urls"])
	assert.EqualValues(t, 1, vars["resultCount"])
	assert.Equal(t, "paris weather", s.query)
}

func TestHandle_SearchErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		retries    int32
		wantFailed bool
		wantCode   string
	}{
		{
			name:       "server error is retried",
			err:        errors.NewSearchStatusError(http.StatusInternalServerError),
			retries:    3,
			wantFailed: true,
		},
		{
			name:     "forbidden is thrown",
			err:      errors.NewSearchStatusError(http.StatusForbidden),
			retries:  3,
			wantCode: "SEARCH_PROVIDER_ERROR",
		},
		{
			name:       "timeout is retried",
			err:        errors.NewSearchProviderError(errors.CauseTimeout, "timed out", context.DeadlineExceeded),
			retries:    3,
			wantFailed: true,
		},
		{
			name:     "timeout on last attempt is thrown",
			err:      errors.NewSearchProviderError(errors.CauseTimeout, "timed out", context.DeadlineExceeded),
			retries:  1,
			wantCode: "WEB_SEARCH_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := camundatest.NewJobClient()
			createTestHandler(t, &stubSearcher{err: tt.err}).Handle(client,
				camundatest.NewJob(22, TaskType, tt.retries, map[string]interface{}{"searchQuery": "q"}))

			assert.Empty(t, client.Completed)
			if tt.wantFailed {
				require.Len(t, client.Failed, 1)
				assert.Empty(t, client.Thrown)
				return
			}
			require.Len(t, client.Thrown, 1)
			assert.Equal(t, tt.wantCode, client.Thrown[0].ErrorCode)
		})
	}
}

func TestNewHandler_RequiresSearcher(t *testing.T) {
	_, err := NewHandler(HandlerOptions{CustomConfig: DefaultConfig()})
	assert.Error(t, err)
}
