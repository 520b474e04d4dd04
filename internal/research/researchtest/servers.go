// Package researchtest provides fake providers for tests of the research
// pipeline and the workers built on it.
package researchtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"research-workers/internal/common/config"
)

// Stage reports which system instruction a chat request carried.
type Stage string

const (
	StageQuery   Stage = "query"
	StageSummary Stage = "summary"
	StageAnswer  Stage = "answer"
	StageOther   Stage = "other"
)

func stageOf(system string) Stage {
	switch {
	case strings.HasPrefix(system, "The input that you will receive is an unformatted prompt."):
		return StageQuery
	case strings.HasPrefix(system, "Please generate a concise summary"):
		return StageSummary
	case strings.HasPrefix(system, "Please use the following realtime data from the internet"):
		return StageAnswer
	}
	return StageOther
}

// ChatCall is one request received by an LLMServer.
type ChatCall struct {
	Stage  Stage
	Model  string
	System string
	User   string
}

// Responder returns the completion content for a call, or a non-200 status.
type Responder func(call ChatCall) (content string, status int)

// LLMServer is a fake chat completions endpoint.
type LLMServer struct {
	*httptest.Server

	mu    sync.Mutex
	calls []ChatCall
}

func NewLLMServer(t testing.TB, respond Responder) *LLMServer {
	s := &LLMServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		call := ChatCall{Model: req.Model}
		for _, m := range req.Messages {
			switch m.Role {
			case "system":
				call.System = m.Content
			case "user":
				call.User = m.Content
			}
		}
		call.Stage = stageOf(call.System)

		s.mu.Lock()
		s.calls = append(s.calls, call)
		s.mu.Unlock()

		content, status := respond(call)
		if status != 0 && status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"fake provider failure"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(s.Close)
	return s
}

// Calls returns a copy of the calls received so far.
func (s *LLMServer) Calls() []ChatCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatCall(nil), s.calls...)
}

// CallsFor returns the calls for one stage.
func (s *LLMServer) CallsFor(stage Stage) []ChatCall {
	var out []ChatCall
	for _, c := range s.Calls() {
		if c.Stage == stage {
			out = append(out, c)
		}
	}
	return out
}

// DefaultResponder answers the query stage with query, summaries with
// "[<chunk>]" and the answer stage with answer.
func DefaultResponder(query, answer string) Responder {
	return func(call ChatCall) (string, int) {
		switch call.Stage {
		case StageQuery:
			return query, http.StatusOK
		case StageSummary:
			return "[" + call.User + "]", http.StatusOK
		case StageAnswer:
			return answer, http.StatusOK
		}
		return "", http.StatusBadRequest
	}
}

// NewSearchServer answers Custom Search requests with links in order.
func NewSearchServer(t testing.TB, links ...string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := make([]map[string]string, len(links))
		for i, l := range links {
			items[i] = map[string]string{"link": l}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
	}))
	t.Cleanup(server.Close)
	return server
}

// NewPageServer serves each body under its path; other paths are 404.
func NewPageServer(t testing.TB, pages map[string]string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// Page wraps paragraphs in a minimal HTML document.
func Page(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>t</title></head><body>")
	for _, p := range paragraphs {
		fmt.Fprintf(&b, "<p>%s</p>", p)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// Config writes a config file pointing at the fake providers and loads it.
// extra is appended verbatim to the YAML.
func Config(t testing.TB, llmURL, searchURL, extra string) *config.Config {
	yaml := fmt.Sprintf(`app:
  name: research-test
apis:
  llm:
    base_url: %s
    api_key: sk-test
    timeout: 2000
  web_search:
    provider: google
    base_url: %s
    api_key: g-test
    engine_id: cx-test
    timeout: 2000
research:
  fetch_timeout: 1000
  chunk_delay: 1
logging:
  level: debug
  format: console
%s`, llmURL, searchURL, extra)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	return cfg
}
