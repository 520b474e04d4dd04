package summarizecontext

import "research-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"context", "prompt"},
		Properties: map[string]validation.Property{
			"context": {
				Type:        "string",
				Description: "Joined page text to summarize",
				MinLength:   validation.IntPtr(1),
			},
			"prompt": {
				Type:        "string",
				Description: "Original question the summary should focus on",
				MinLength:   validation.IntPtr(1),
			},
		},
	}
}
