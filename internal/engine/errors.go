package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors callers can test with errors.Is.
var (
	// ErrUnknownEngine indicates a name outside Names().
	ErrUnknownEngine = errors.New("unknown synthesis engine")

	// ErrEmptyText indicates a request with nothing to speak.
	ErrEmptyText = errors.New("narration text is empty")

	// ErrTextTooLong indicates text over the engine's input limit.
	ErrTextTooLong = errors.New("text exceeds engine input limit")

	// ErrUnsupportedLanguage indicates a language the engine cannot speak.
	ErrUnsupportedLanguage = errors.New("language not supported by engine")

	// ErrUnsupportedOption indicates an option another engine owns.
	ErrUnsupportedOption = errors.New("option not supported by engine")

	// ErrEngineUnavailable indicates the engine runtime is not installed.
	ErrEngineUnavailable = errors.New("engine runtime not available")

	// ErrNoOutput indicates the subprocess exited cleanly but wrote no audio.
	ErrNoOutput = errors.New("engine produced no audio")
)

// Code classifies engine failures for retry decisions and diagnostics.
type Code string

const (
	CodeUnavailable Code = "ENGINE_UNAVAILABLE"
	CodeBadRequest  Code = "INVALID_REQUEST"
	CodeSynthesis   Code = "SYNTHESIS_FAILED"
	CodeTimeout     Code = "SYNTHESIS_TIMEOUT"
	CodeBadOutput   Code = "BAD_OUTPUT"
)

// Error is a classified engine failure.
type Error struct {
	Code    Code
	Engine  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Engine, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Engine, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the same request could succeed on another
// attempt. Bad requests and missing runtimes never will.
func (e *Error) Retryable() bool {
	return e.Code == CodeTimeout || e.Code == CodeSynthesis
}

func newError(code Code, engine, message string, cause error) *Error {
	return &Error{Code: code, Engine: engine, Message: message, Cause: cause}
}

func badRequest(engine string, cause error) *Error {
	return newError(CodeBadRequest, engine, "rejected before synthesis", cause)
}
