// test/e2e/e2e_test.go
package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-workers/internal/common/camunda"
	"research-workers/internal/common/camunda/camundatest"
	"research-workers/internal/common/config"
	"research-workers/internal/common/logger"
	"research-workers/internal/research/pipeline"
	"research-workers/internal/research/researchtest"
	"research-workers/pkg/registry"

	answerquestion "research-workers/internal/workers/research/answer-question"
	extractpagetext "research-workers/internal/workers/research/extract-page-text"
	generatesearchquery "research-workers/internal/workers/research/generate-search-query"
	summarizecontext "research-workers/internal/workers/research/summarize-context"
	websearch "research-workers/internal/workers/research/web-search"
)

// step is one service task of the research process.
type step struct {
	taskType string
	handler  camunda.JobHandler
}

func buildSteps(t *testing.T, cfg *config.Config, p *pipeline.Pipeline) []step {
	log := logger.NewTestLogger(t)

	gsq, err := generatesearchquery.NewHandler(generatesearchquery.HandlerOptions{AppConfig: cfg, Generator: p, Logger: log})
	require.NoError(t, err)
	ws, err := websearch.NewHandler(websearch.HandlerOptions{AppConfig: cfg, Searcher: p, Logger: log})
	require.NoError(t, err)
	ept, err := extractpagetext.NewHandler(extractpagetext.HandlerOptions{AppConfig: cfg, Gatherer: p, Logger: log})
	require.NoError(t, err)
	sc, err := summarizecontext.NewHandler(summarizecontext.HandlerOptions{AppConfig: cfg, Summarizer: p, Logger: log})
	require.NoError(t, err)
	aq, err := answerquestion.NewHandler(answerquestion.HandlerOptions{AppConfig: cfg, Pipeline: p, Logger: log})
	require.NoError(t, err)

	return []step{
		{generatesearchquery.TaskType, gsq},
		{websearch.TaskType, ws},
		{extractpagetext.TaskType, ept},
		{summarizecontext.TaskType, sc},
		{answerquestion.TaskType, aq},
	}
}

// runProcess hands each job the process variables so far and merges the
// completed job's variables back, the way the engine does for a sequence of
// service tasks. It stops at the first job that does not complete.
func runProcess(t *testing.T, steps []step, vars map[string]interface{}) (map[string]interface{}, *camundatest.JobClient) {
	reg, err := registry.Load("../../configs/activity-registry.json")
	require.NoError(t, err)

	for i, s := range steps {
		activity, ok := reg.Find(s.taskType)
		require.True(t, ok, s.taskType)
		require.True(t, activity.CheckInput(vars).Valid, "%s input: %v", s.taskType, activity.CheckInput(vars).GetErrorMessages())

		client := camundatest.NewJobClient()
		s.handler.Handle(client, camundatest.NewJob(int64(100+i), s.taskType, 3, vars))
		if len(client.Completed) != 1 {
			return vars, client
		}

		out := client.CompletedVariables()
		result := activity.CheckOutput(out)
		require.True(t, result.Valid, "%s output: %v", s.taskType, result.GetErrorMessages())
		for k, v := range out {
			vars[k] = v
		}
	}
	return vars, nil
}

func fakeElasticsearch(t *testing.T, links ...string) *elasticsearch.Client {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits := make([]map[string]interface{}, len(links))
		for i, l := range links {
			hits[i] = map[string]interface{}{"_score": float64(len(links) - i), "_source": map[string]string{"link": l}}
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"hits": map[string]interface{}{"hits": hits}})
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}, DisableRetry: true})
	require.NoError(t, err)
	return client
}

// ==========================
// Process flows
// ==========================

func TestResearchProcess_StageByStage(t *testing.T) {
	pages := researchtest.NewPageServer(t, map[string]string{
		"/one": researchtest.Page("Paris will be sunny today."),
		"/two": researchtest.Page("Expect light winds in the afternoon."),
	})
	searchSrv := researchtest.NewSearchServer(t, pages.URL+"/one", pages.URL+"/gone", pages.URL+"/two")
	llmSrv := researchtest.NewLLMServer(t, researchtest.DefaultResponder(`"paris weather today"`, "Sunny with light winds."))

	cfg := researchtest.Config(t, llmSrv.URL, searchSrv.URL, "")
	p, err := pipeline.NewFromConfig(cfg, pipeline.Dependencies{Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	vars, failed := runProcess(t, buildSteps(t, cfg, p), map[string]interface{}{"prompt": "What is the weather in Paris today?"})
	require.Nil(t, failed)

	assert.Equal(t, "paris weather today", vars["searchQuery"])
	assert.EqualValues(t, 3, vars["resultCount"])
	assert.EqualValues(t, 3, vars["pagesFetched"])
	assert.EqualValues(t, 2, vars["pagesSucceeded"])
	assert.Equal(t, "Paris will be sunny today.Expect light winds in the afternoon.", vars["context"])
	assert.Equal(t, "[Paris will be sunny today.Expect light winds in the afternoon.]", vars["summary"])
	assert.Equal(t, false, vars["truncated"])
	assert.Equal(t, "Sunny with light winds.", vars["answer"])

	// the answer step reuses the summary instead of researching again
	assert.Len(t, llmSrv.CallsFor(researchtest.StageQuery), 1)
	assert.Len(t, llmSrv.CallsFor(researchtest.StageSummary), 1)
	assert.Len(t, llmSrv.CallsFor(researchtest.StageAnswer), 1)
}

func TestResearchProcess_SingleJobOverElasticsearch(t *testing.T) {
	pages := researchtest.NewPageServer(t, map[string]string{
		"/a": researchtest.Page("Alpha ", "text about the topic."),
		"/b": researchtest.Page("Beta text."),
	})
	llmSrv := researchtest.NewLLMServer(t, researchtest.DefaultResponder("topic", "An answer."))

	cfg := researchtest.Config(t, llmSrv.URL, "http://127.0.0.1:1", "")
	cfg.APIs.WebSearch.Provider = config.ProviderElasticsearch
	cfg.Research.ChunkSize = 10

	p, err := pipeline.NewFromConfig(cfg, pipeline.Dependencies{
		Logger:        logger.NewTestLogger(t),
		Elasticsearch: fakeElasticsearch(t, pages.URL+"/a", pages.URL+"/b"),
	})
	require.NoError(t, err)

	steps := buildSteps(t, cfg, p)
	vars, failed := runProcess(t, steps[len(steps)-1:], map[string]interface{}{"prompt": "Tell me about the topic"})
	require.Nil(t, failed)

	assert.Equal(t, "An answer.", vars["answer"])
	assert.Equal(t, "topic", vars["searchQuery"])
	assert.Equal(t, []interface{}{pages.URL + "/a", pages.URL + "/b"}, vars["urls"])
	assert.NotEmpty(t, vars["runId"])

	summaries := llmSrv.CallsFor(researchtest.StageSummary)
	assert.Greater(t, len(summaries), 1)
}

func TestResearchProcess_SearchProviderRejects(t *testing.T) {
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(searchSrv.Close)
	llmSrv := researchtest.NewLLMServer(t, researchtest.DefaultResponder("q", "a"))

	cfg := researchtest.Config(t, llmSrv.URL, searchSrv.URL, "")
	p, err := pipeline.NewFromConfig(cfg, pipeline.Dependencies{})
	require.NoError(t, err)

	vars, failed := runProcess(t, buildSteps(t, cfg, p), map[string]interface{}{"prompt": "anything"})
	require.NotNil(t, failed)

	assert.Contains(t, vars, "searchQuery")
	assert.NotContains(t, vars, "urls")
	require.Len(t, failed.Thrown, 1)
	assert.Equal(t, "SEARCH_PROVIDER_ERROR", failed.Thrown[0].ErrorCode)
	assert.Contains(t, failed.Thrown[0].ErrorMessage, "403")
	assert.Empty(t, llmSrv.CallsFor(researchtest.StageSummary), fmt.Sprintf("calls: %v", llmSrv.Calls()))
}
