package summarizecontext

type Input struct {
	Context string `json:"context"`
	Prompt  string `json:"prompt"`
}

type Output struct {
	Summary      string `json:"summary"`
	SummaryChars int    `json:"summaryChars"`
	Truncated    bool   `json:"truncated"`
}
