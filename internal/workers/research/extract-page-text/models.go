package extractpagetext

type Input struct {
	URLs []string `json:"urls"`
}

// Output carries the joined page text. PagesFetched counts every URL tried,
// PagesSucceeded only those that yielded text.
type Output struct {
	Context        string `json:"context"`
	ContextChars   int    `json:"contextChars"`
	PagesFetched   int    `json:"pagesFetched"`
	PagesSucceeded int    `json:"pagesSucceeded"`
}
