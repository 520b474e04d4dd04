package generatesearchquery

type Input struct {
	Prompt string `json:"prompt"`
}

type Output struct {
	SearchQuery string `json:"searchQuery"`
}
