package websearch

import "research-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"searchQuery"},
		Properties: map[string]validation.Property{
			"searchQuery": {
				Type:        "string",
				Description: "Query sent to the search provider",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(2048),
			},
		},
	}
}
