// internal/research/llm/client.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	apperrors "research-workers/internal/common/errors"
	commonhttp "research-workers/internal/common/http"
	"research-workers/internal/common/logger"
)

const completionsPath = "/chat/completions"

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	config Config
	http   *commonhttp.Client
	logger logger.Logger
}

func NewClient(cfg Config, log logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		config: cfg,
		http:   commonhttp.NewClient(cfg.Timeout),
		logger: log,
	}
}

// Complete sends settings plus prompt as a final user message. The caller's
// settings are not modified. Validation failures never reach the network.
func (c *Client) Complete(ctx context.Context, prompt string, settings Settings) (*Response, error) {
	if missing := settings.missingFields(); len(missing) > 0 {
		return nil, apperrors.NewConfigurationError(missing...)
	}

	messages := make([]Message, 0, len(settings.Messages)+1)
	messages = append(messages, settings.Messages...)
	messages = append(messages, Message{Role: RoleUser, Content: prompt})
	settings.Messages = messages

	body, err := json.Marshal(settings)
	if err != nil {
		return nil, apperrors.NewLLMProviderError(apperrors.CauseTransport, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewLLMProviderError(apperrors.CauseTransport, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if commonhttp.IsTimeout(err) {
			return nil, apperrors.NewLLMProviderError(apperrors.CauseTimeout,
				fmt.Sprintf("the request to %s timed out", settings.Model), err)
		}
		return nil, apperrors.NewLLMProviderError(apperrors.CauseTransport,
			fmt.Sprintf("the request to %s failed", settings.Model), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := apperrors.NewLLMStatusError(resp.StatusCode)
		statusErr.Message = fmt.Sprintf("the request to %s failed with status %d", settings.Model, resp.StatusCode)
		if msg := providerErrorMessage(resp.Body); msg != "" {
			statusErr.Err = errors.New(msg)
		}
		return nil, statusErr
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil, apperrors.NewLLMProviderError(apperrors.CauseMalformedResponse,
			fmt.Sprintf("unexpected content type %q from %s", resp.Header.Get("Content-Type"), settings.Model), nil)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if commonhttp.IsTimeout(err) {
			return nil, apperrors.NewLLMProviderError(apperrors.CauseTimeout, "timed out reading response", err)
		}
		return nil, apperrors.NewLLMProviderError(apperrors.CauseMalformedResponse, "failed to decode response", err)
	}
	if len(out.Choices) == 0 {
		return nil, apperrors.NewLLMProviderError(apperrors.CauseMalformedResponse,
			fmt.Sprintf("response from %s did not include choices", settings.Model), nil)
	}

	c.logger.Debug("completion received", map[string]interface{}{
		"model":            settings.Model,
		"choices":          len(out.Choices),
		"promptTokens":     out.Usage.PromptTokens,
		"completionTokens": out.Usage.CompletionTokens,
		"durationMs":       time.Since(start).Milliseconds(),
	})

	return &out, nil
}

func providerErrorMessage(body io.Reader) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	return payload.Error.Message
}
