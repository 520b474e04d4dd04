package llm

// Role values used in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Settings is the chat completion request body minus the final user message.
type Settings struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	PresencePenalty  float64   `json:"presence_penalty"`
	MaxTokens        int       `json:"max_tokens"`
	N                int       `json:"n"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
}

// WithSystem returns a copy of s whose message list is the single system
// instruction.
func (s Settings) WithSystem(instruction string) Settings {
	s.Messages = []Message{{Role: RoleSystem, Content: instruction}}
	return s
}

// missingFields lists required settings that are empty, in a fixed order.
func (s Settings) missingFields() []string {
	var missing []string
	if s.Model == "" {
		missing = append(missing, "model")
	}
	if s.MaxTokens <= 0 {
		missing = append(missing, "max_tokens")
	}
	if len(s.Messages) == 0 {
		missing = append(missing, "messages")
	}
	return missing
}

type Response struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Content returns the first choice's text, or "" when there is none.
func (r *Response) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}
