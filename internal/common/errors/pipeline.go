// internal/common/errors/pipeline.go
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is one of the four fatal failure kinds of a research run.
type Kind string

const (
	KindSearchProvider    Kind = "SEARCH_PROVIDER_ERROR"
	KindLLMProvider       Kind = "LLM_PROVIDER_ERROR"
	KindConfiguration     Kind = "CONFIGURATION_ERROR"
	KindContentExtraction Kind = "CONTENT_EXTRACTION_ERROR"
)

// Cause says what went wrong inside a provider error. Callers may log it but
// should branch on Kind only.
type Cause string

const (
	CauseNone              Cause = ""
	CauseStatus            Cause = "status"
	CauseTimeout           Cause = "timeout"
	CauseTransport         Cause = "transport"
	CauseMalformedResponse Cause = "malformed-response"
)

// PipelineError is returned by every research stage that can end a run.
type PipelineError struct {
	Kind       Kind
	Cause      Cause
	Message    string
	StatusCode int      // set when Cause is CauseStatus
	Missing    []string // set for configuration errors
	Err        error
}

func (e *PipelineError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Cause == CauseNone {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Cause, msg)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches another PipelineError of the same kind. A target with a cause
// also has to match the cause.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Cause == CauseNone || t.Cause == e.Cause
}

// Retryable reports whether running the same stage again may succeed.
func (e *PipelineError) Retryable() bool {
	switch e.Cause {
	case CauseTimeout, CauseTransport:
		return true
	case CauseStatus:
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

var (
	ErrSearchProvider    = &PipelineError{Kind: KindSearchProvider}
	ErrLLMProvider       = &PipelineError{Kind: KindLLMProvider}
	ErrConfiguration     = &PipelineError{Kind: KindConfiguration}
	ErrContentExtraction = &PipelineError{Kind: KindContentExtraction}
)

func NewSearchProviderError(cause Cause, message string, err error) *PipelineError {
	return &PipelineError{Kind: KindSearchProvider, Cause: cause, Message: message, Err: err}
}

func NewSearchStatusError(status int) *PipelineError {
	return &PipelineError{
		Kind:       KindSearchProvider,
		Cause:      CauseStatus,
		Message:    fmt.Sprintf("search provider returned status %d", status),
		StatusCode: status,
	}
}

func NewLLMProviderError(cause Cause, message string, err error) *PipelineError {
	return &PipelineError{Kind: KindLLMProvider, Cause: cause, Message: message, Err: err}
}

func NewLLMStatusError(status int) *PipelineError {
	return &PipelineError{
		Kind:       KindLLMProvider,
		Cause:      CauseStatus,
		Message:    fmt.Sprintf("LLM provider returned status %d", status),
		StatusCode: status,
	}
}

// NewConfigurationError lists every missing setting in its message.
func NewConfigurationError(missing ...string) *PipelineError {
	return &PipelineError{
		Kind:    KindConfiguration,
		Message: "missing required setting(s): " + strings.Join(missing, ", "),
		Missing: missing,
	}
}

func NewContentExtractionError(message string) *PipelineError {
	return &PipelineError{Kind: KindContentExtraction, Message: message}
}

// KindOf returns the kind of a wrapped PipelineError, or "" for anything else.
func KindOf(err error) Kind {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// ToStandardError maps any error returned by the research stages to the job
// error model. Errors that are already StandardErrors pass through.
func ToStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	var pe *PipelineError
	if !stderrors.As(err, &pe) {
		return NewInternalError(err)
	}

	var out *StandardError
	switch pe.Kind {
	case KindSearchProvider:
		if pe.Cause == CauseTimeout {
			out = NewWebSearchTimeoutError(pe.Error())
		} else {
			out = NewWebSearchFailedError(pe.Error(), pe.Retryable())
		}
	case KindLLMProvider:
		if pe.Cause == CauseTimeout {
			out = NewLLMTimeoutError(pe.Error())
		} else {
			out = NewLLMRequestFailedError(pe.Error(), pe.Retryable())
		}
	case KindConfiguration:
		out = NewLLMSettingsInvalidError(pe.Error())
	case KindContentExtraction:
		out = NewContentExtractionFailedError(pe.Error())
	default:
		return NewInternalError(err)
	}

	out.Metadata = map[string]interface{}{"pipelineErrorKind": string(pe.Kind)}
	if pe.Cause != CauseNone {
		out.Metadata["pipelineErrorCause"] = string(pe.Cause)
	}
	if pe.StatusCode != 0 {
		out.Metadata["statusCode"] = pe.StatusCode
	}
	return out
}
