package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"research-workers/internal/common/database"
)

type readinessCheck struct {
	name  string
	check func(ctx context.Context) error
}

// searchIndexCheck fails when Elasticsearch is unreachable or the search
// index is missing.
func searchIndexCheck(es *database.ElasticsearchClient, index string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		exists, err := es.IndexExists(ctx, index)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("search index %q does not exist", index)
		}
		return nil
	}
}

func newHealthMux(checks []readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		failures := map[string]string{}
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				failures[c.name] = err.Error()
			}
		}
		body := map[string]interface{}{"time": time.Now().Format(time.RFC3339)}
		if len(failures) > 0 {
			status, code = "not ready", http.StatusServiceUnavailable
			body["failures"] = failures
		}
		body["status"] = status
		writeJSON(w, code, body)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
