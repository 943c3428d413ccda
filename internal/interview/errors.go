package interview

import (
	"errors"
	"fmt"

	"interview-backend/internal/extract"
	"interview-backend/internal/llm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid interview transition")
	ErrStaleSubmission   = errors.New("stale submission")
	ErrInvalidField      = errors.New("invalid field")
	ErrEmptyAnswer       = errors.New("answer is required")
	ErrNoActiveQuestion  = errors.New("no active question")
	ErrFileTooLarge      = errors.New("file too large")

	ErrUnreadableFile  = extract.ErrUnreadableFile
	ErrUnsupportedType = extract.ErrUnsupportedType
	ErrParse           = llm.ErrParse
	ErrGeneration      = llm.ErrGeneration
	ErrEvaluation      = llm.ErrEvaluation
)

// FieldError is a rejected validation input.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidField
}

func invalidTransition(op string, from Status) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, from)
}
