package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aq "research-workers/internal/workers/research/answer-question"
	ept "research-workers/internal/workers/research/extract-page-text"
	gsq "research-workers/internal/workers/research/generate-search-query"
	sc "research-workers/internal/workers/research/summarize-context"
	ws "research-workers/internal/workers/research/web-search"
)

const shippedRegistry = "../../configs/activity-registry.json"

func validActivity(id, taskType string) Activity {
	return Activity{
		ID:                   id,
		DisplayName:          id,
		Category:             "research",
		TaskType:             taskType,
		ImplementationStatus: StatusPlanned,
		Timeout:              "10s",
	}
}

// ==========================
// Shipped registry
// ==========================

func TestShippedRegistry_DescribesEveryWorker(t *testing.T) {
	reg, err := Load(shippedRegistry)
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	for _, taskType := range []string{gsq.TaskType, ws.TaskType, ept.TaskType, sc.TaskType, aq.TaskType} {
		a, ok := reg.Find(taskType)
		require.True(t, ok, taskType)
		assert.Equal(t, StatusCompleted, a.ImplementationStatus)
		assert.NotEmpty(t, a.InputSchema, taskType)
		assert.NotEmpty(t, a.OutputSchema, taskType)
		assert.Contains(t, a.ErrorCodes, "INVALID_INPUT")
	}
}

func TestShippedRegistry_Schemas(t *testing.T) {
	reg, err := Load(shippedRegistry)
	require.NoError(t, err)

	a, ok := reg.Find(aq.TaskType)
	require.True(t, ok)

	assert.True(t, a.CheckInput(map[string]interface{}{"prompt": "Weather in Paris?"}).Valid)
	assert.True(t, a.CheckInput(map[string]interface{}{
		"prompt": "q", "summary": "s", "modelSettings": map[string]interface{}{"model": "gpt-4"},
	}).Valid)
	assert.False(t, a.CheckInput(map[string]interface{}{"summary": "s"}).Valid)

	assert.True(t, a.CheckOutput(map[string]interface{}{
		"answer": "Sunny", "searchQuery": "", "urls": []interface{}{}, "runId": "r-1",
	}).Valid)
	assert.False(t, a.CheckOutput(map[string]interface{}{"answer": "Sunny"}).Valid)
}

// ==========================
// Validate
// ==========================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *ActivityRegistry)
		wantErr string
	}{
		{name: "valid", mutate: func(r *ActivityRegistry) {}},
		{name: "empty", mutate: func(r *ActivityRegistry) { r.Activities = nil }, wantErr: "no activities"},
		{
			name:    "duplicate id",
			mutate:  func(r *ActivityRegistry) { r.Activities[1].ID = r.Activities[0].ID },
			wantErr: "duplicate activity ID",
		},
		{
			name:    "duplicate task type",
			mutate:  func(r *ActivityRegistry) { r.Activities[1].TaskType = r.Activities[0].TaskType },
			wantErr: "duplicate task type",
		},
		{
			name:    "missing task type",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].TaskType = "" },
			wantErr: "TaskType",
		},
		{
			name:    "unknown status",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].ImplementationStatus = "done" },
			wantErr: "unknown implementation status",
		},
		{
			name:    "bad timeout",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].Timeout = "soon" },
			wantErr: "invalid timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Activities: []Activity{
				validActivity("a", "task-a"),
				validActivity("b", "task-b"),
			}}
			tt.mutate(reg)

			err := reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// ==========================
// Load / Save
// ==========================

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	reg := &ActivityRegistry{Version: "1.0.0", Activities: []Activity{validActivity("a", "task-a")}}

	require.NoError(t, reg.Save(path))
	assert.NotEmpty(t, reg.LastUpdated)

	loaded, err := Load(path)
	require.NoError(t, err)
	a, ok := loaded.FindByID("a")
	require.True(t, ok)
	assert.Equal(t, "task-a", a.TaskType)

	_, ok = loaded.Find("task-missing")
	assert.False(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse registry")
}
