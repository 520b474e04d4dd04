package extractpagetext

import "research-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"urls"},
		Properties: map[string]validation.Property{
			"urls": {
				Type:        "array",
				Description: "Search result URLs in ranking order",
				Items: &validation.Property{
					Type:      "string",
					MinLength: validation.IntPtr(1),
				},
			},
		},
	}
}
