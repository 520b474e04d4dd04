package main

import (
	stderrors "errors"

	apperrors "research-workers/internal/common/errors"
)

// displayError renders a pipeline failure for the terminal.
func displayError(err error) string {
	var pe *apperrors.PipelineError
	if !stderrors.As(err, &pe) {
		return "Unexpected error: " + err.Error()
	}

	msg := pe.Message
	if pe.Err != nil {
		msg += ": " + pe.Err.Error()
	}
	switch pe.Kind {
	case apperrors.KindLLMProvider:
		return "LLM provider error: " + msg
	case apperrors.KindSearchProvider:
		return "Search provider error: " + msg
	case apperrors.KindContentExtraction:
		return "Content extraction error: " + msg
	case apperrors.KindConfiguration:
		return "Configuration error: " + msg
	}
	return "Unexpected error: " + msg
}

func configError(err error) error {
	return &apperrors.PipelineError{Kind: apperrors.KindConfiguration, Message: err.Error()}
}
