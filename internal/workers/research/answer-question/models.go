package answerquestion

type Input struct {
	Prompt string `json:"prompt"`
	// Summary set means the earlier stages already ran; only the answer is
	// produced.
	Summary       *string                `json:"summary,omitempty"`
	ModelSettings map[string]interface{} `json:"modelSettings,omitempty"`
	// SearchQuery and URLs from earlier stages are passed through in
	// answer-only mode.
	SearchQuery string   `json:"searchQuery,omitempty"`
	URLs        []string `json:"urls,omitempty"`
}

type Output struct {
	Answer      string   `json:"answer"`
	SearchQuery string   `json:"searchQuery"`
	URLs        []string `json:"urls"`
	RunID       string   `json:"runId"`
}
