package websearch

type Input struct {
	SearchQuery string `json:"searchQuery"`
}

type Output struct {
	URLs        []string `json:"urls"`
	ResultCount int      `json:"resultCount"`
}
