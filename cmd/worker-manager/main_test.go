package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-workers/internal/common/config"
	"research-workers/internal/common/database"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/research/pipeline"
	"research-workers/internal/research/researchtest"
	"research-workers/pkg/registry"
)

// ==========================
// Health server
// ==========================

func get(t *testing.T, mux http.Handler, path string) (int, map[string]interface{}) {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func TestHealthAlwaysOK(t *testing.T) {
	code, body := get(t, newHealthMux(nil), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyPingsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer rdb.Close()

	mux := newHealthMux([]readinessCheck{{name: "redis", check: rdb.Ping}})

	code, body := get(t, mux, "/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])

	mr.Close()
	code, body = get(t, mux, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", body["status"])
	assert.Contains(t, body["failures"], "redis")
}

func TestReadyChecksSearchIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/web-pages" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: server.URL})
	require.NoError(t, err)

	code, body := get(t, newHealthMux([]readinessCheck{{name: "elasticsearch", check: searchIndexCheck(es, "web-pages")}}), "/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])

	code, body = get(t, newHealthMux([]readinessCheck{{name: "elasticsearch", check: searchIndexCheck(es, "missing-index")}}), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	failures, ok := body["failures"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, failures["elasticsearch"], "missing-index")
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.WorkerJobsCompleted.WithLabelValues("metrics-endpoint-test").Inc()

	rec := httptest.NewRecorder()
	newHealthMux(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "metrics-endpoint-test")
}

// ==========================
// Worker registration
// ==========================

func testPipeline(t *testing.T, extra string) (*config.Config, *pipeline.Pipeline) {
	cfg := researchtest.Config(t, "http://127.0.0.1:1", "http://127.0.0.1:1", extra)
	p, err := pipeline.NewFromConfig(cfg, pipeline.Dependencies{})
	require.NoError(t, err)
	return cfg, p
}

func TestBuildHandlers_AllEnabledByDefault(t *testing.T) {
	cfg, p := testPipeline(t, "")

	regs, err := buildHandlers(cfg, p, logger.NewTestLogger(t))
	require.NoError(t, err)

	var types []string
	for _, r := range regs {
		types = append(types, r.taskType)
	}
	assert.Equal(t, []string{
		"research-generate-search-query",
		"research-web-search",
		"research-extract-page-text",
		"research-summarize-context",
		"research-answer-question",
	}, types)
}

func TestBuildHandlers_SkipsDisabled(t *testing.T) {
	cfg, p := testPipeline(t, "")
	cfg.Workers = map[string]config.WorkerConfig{
		"research-web-search": {Enabled: false},
	}

	regs, err := buildHandlers(cfg, p, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.Len(t, regs, 4)
	for _, r := range regs {
		assert.NotEqual(t, "research-web-search", r.taskType)
	}
}

func TestDescribeActivities(t *testing.T) {
	cfg, p := testPipeline(t, "")
	regs, err := buildHandlers(cfg, p, logger.NewNoOpLogger())
	require.NoError(t, err)

	reg, err := registry.Load("../../configs/activity-registry.json")
	require.NoError(t, err)
	assert.Empty(t, describeActivities(reg, regs, logger.NewTestLogger(t)))

	reg.Activities = reg.Activities[:1]
	assert.Len(t, describeActivities(reg, regs, logger.NewNoOpLogger()), 4)
}
