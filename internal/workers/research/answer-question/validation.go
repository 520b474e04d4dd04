package answerquestion

import "research-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"prompt"},
		Properties: map[string]validation.Property{
			"prompt": {
				Type:        "string",
				Description: "The user's question",
				MinLength:   validation.IntPtr(1),
			},
			"summary": {
				Type:        "string",
				Description: "Summary from research-summarize-context",
			},
			"modelSettings": {
				Type:        "object",
				Description: "Overrides for the answer model (model, temperature, max_tokens, ...)",
			},
			"searchQuery": {
				Type: "string",
			},
			"urls": {
				Type:  "array",
				Items: &validation.Property{Type: "string"},
			},
		},
	}
}
