package stage

import (
	"context"
	"errors"
	"fmt"
)

// Stage names one step of the utterance pipeline.
type Stage string

const (
	StageTranscribe Stage = "transcribe"
	StageTranslate  Stage = "translate"
	StageSynthesize Stage = "synthesize"
	StageClone      Stage = "clone"
)

// Sentinel errors for local validation.
var (
	// ErrEmptyAudio is returned when no audio bytes were provided.
	ErrEmptyAudio = errors.New("stage: empty audio")

	// ErrEmptyText is returned when there is no text to synthesize.
	ErrEmptyText = errors.New("stage: empty text")

	// ErrNoAPIKey is returned when the engine credential is missing.
	ErrNoAPIKey = errors.New("stage: API key required")
)

// Error is a stage failure with the upstream-reported reason attached.
// It aborts only the current utterance's pipeline.
type Error struct {
	// Stage identifies the failing pipeline step.
	Stage Stage

	// Reason is the human-readable failure cause, captured from the
	// upstream payload when available.
	Reason string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil && e.Reason != "" {
		return fmt.Sprintf("stage [%s]: %s: %v", e.Stage, e.Reason, e.Err)
	}
	if e.Reason != "" {
		return fmt.Sprintf("stage [%s]: %s", e.Stage, e.Reason)
	}
	return fmt.Sprintf("stage [%s]: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was the engine exceeding its deadline.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// failed wraps err with stage context, capturing deadline expiry.
func failed(s Stage, reason string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "engine deadline exceeded"
	}
	return &Error{Stage: s, Reason: reason, Err: err}
}

// StageOf extracts the failing stage from an error chain.
func StageOf(err error) (Stage, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
