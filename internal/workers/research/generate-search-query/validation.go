package generatesearchquery

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
				MaxLength:   validation.IntPtr(10000),
			},
		},
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"searchQuery"},
		Properties: map[string]validation.Property{
			"searchQuery": {
				Type:        "string",
				Description: "Single search query derived from the prompt",
				MinLength:   validation.IntPtr(1),
			},
		},
		AdditionalProperties: validation.BoolPtr(false),
	}
}
