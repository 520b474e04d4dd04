// Package summarize condenses long page text by summarizing fixed-size chunks
// in parallel.
package summarize

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/sourcegraph/conc"

	apperrors "research-workers/internal/common/errors"
	"research-workers/internal/common/logger"
	"research-workers/internal/common/metrics"
	"research-workers/internal/research/llm"
	"research-workers/internal/research/pacing"
)

const DefaultChunkSize = 3000

// Completer is the part of the LLM client the summarizer needs.
type Completer interface {
	Complete(ctx context.Context, prompt string, settings llm.Settings) (*llm.Response, error)
}

// SummaryInstruction is the system message sent with every chunk.
func SummaryInstruction(prompt string) string {
	return "Please generate a concise summary of the following text. Focus on capturing the key points, " +
		"main ideas, and essential details that relate to the original question. The summary should be " +
		"comprehensive yet brief, offering a clear overview of the text's content. " +
		"Original question: \"" + prompt + "\""
}

// Chunk splits text into pieces of at most size characters. Joining the
// pieces gives back text.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks []string
	start, count := 0, 0
	for i := range text {
		if count == size {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks
}

type Summarizer struct {
	client    Completer
	settings  llm.Settings
	pacer     pacing.Pacer
	chunkSize int
	logger    logger.Logger
}

func New(client Completer, settings llm.Settings, pacer pacing.Pacer, chunkSize int, log logger.Logger) *Summarizer {
	if pacer == nil {
		pacer = pacing.NewInterval(0)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Summarizer{
		client:    client,
		settings:  settings,
		pacer:     pacer,
		chunkSize: chunkSize,
		logger:    log,
	}
}

// Summarize returns the chunk summaries of text joined in chunk order.
// Chunks whose call fails or returns no content are left out; only when
// every chunk fails is an error returned.
func (s *Summarizer) Summarize(ctx context.Context, text, prompt string) (string, error) {
	chunks := Chunk(text, s.chunkSize)
	if len(chunks) == 0 {
		return "", nil
	}

	settings := s.settings.WithSystem(SummaryInstruction(prompt))
	summaries := make([]string, len(chunks))
	failures := make([]error, len(chunks))

	var launchErr error
	var warnOnce sync.Once
	wg := conc.NewWaitGroup()
	for i, chunk := range chunks {
		if err := s.pacer.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				launchErr = ctx.Err()
				break
			}
			warnOnce.Do(func() {
				s.logger.Warn("pacing unavailable, launching without delay", map[string]interface{}{
					"error": err.Error(),
				})
			})
		}

		i, chunk := i, chunk
		wg.Go(func() {
			resp, err := s.client.Complete(ctx, chunk, settings)
			switch {
			case err != nil:
				failures[i] = err
				metrics.ChunkSummariesTotal.WithLabelValues("error").Inc()
			case resp.Content() == "":
				failures[i] = apperrors.NewLLMProviderError(apperrors.CauseMalformedResponse,
					"chunk summary had no content", nil)
				metrics.ChunkSummariesTotal.WithLabelValues("empty").Inc()
			default:
				summaries[i] = resp.Content()
				metrics.ChunkSummariesTotal.WithLabelValues("ok").Inc()
			}
		})
	}
	wg.Wait()

	if launchErr != nil {
		return "", apperrors.NewLLMProviderError(apperrors.CauseTimeout, "summarization was cancelled", launchErr)
	}

	var b strings.Builder
	var firstErr error
	failed := 0
	for i := range chunks {
		if failures[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = failures[i]
			}
			continue
		}
		b.WriteString(summaries[i])
	}

	s.logger.Info("summarized chunks", map[string]interface{}{
		"chunks":  len(chunks),
		"failed":  failed,
		"summary": b.Len(),
	})
	if failed > 0 && failed < len(chunks) {
		s.logger.Warn("some chunk summaries failed", map[string]interface{}{
			"failed": failed,
			"error":  firstErr.Error(),
		})
	}

	if failed == len(chunks) {
		return "", allFailed(firstErr)
	}
	return b.String(), nil
}

func allFailed(first error) error {
	var pe *apperrors.PipelineError
	if stderrors.As(first, &pe) {
		if pe.Kind != apperrors.KindLLMProvider {
			return first
		}
		return apperrors.NewLLMProviderError(pe.Cause, "every chunk summary failed", first)
	}
	return apperrors.NewLLMProviderError(apperrors.CauseTransport, "every chunk summary failed", first)
}
