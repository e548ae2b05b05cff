package model

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// ErrorCategory is the coarse class a failed unit of work is reported with
type ErrorCategory string

const (
	CategoryNone        ErrorCategory = ""
	CategoryExtraction  ErrorCategory = "extraction"
	CategoryResolution  ErrorCategory = "resolution"
	CategoryPersistence ErrorCategory = "persistence"
	CategoryValidation  ErrorCategory = "validation"
	CategoryNotFound    ErrorCategory = "not_found"
	CategoryInternal    ErrorCategory = "internal"
)

// ExtractionError signals that the language model is unavailable or the input is unusable.
// It is not retried.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction error: %s: %v", e.Reason, e.Err)
	}
	return "extraction error: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ResolutionReason explains why a mention could not be resolved
type ResolutionReason string

const (
	ReasonTooAmbiguous ResolutionReason = "too_ambiguous"
)

// ResolutionError is returned for mentions that are skipped instead of resolved
type ResolutionError struct {
	Reason  ResolutionReason
	Mention string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution error(%s): %q", e.Reason, e.Mention)
}

// IsTooAmbiguous reports whether err is a too_ambiguous resolution error
func IsTooAmbiguous(err error) bool {
	var resErr *ResolutionError
	return errors.As(err, &resErr) && resErr.Reason == ReasonTooAmbiguous
}

// PersistenceError wraps a storage failure.
// Transient errors (connection loss, serialization failure, timeout) may be retried.
type PersistenceError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *PersistenceError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("persistence error (%s) %s: %v", kind, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable persistence error
func IsTransient(err error) bool {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return perr.Transient
	}
	return false
}

// ValidationError reports invalid caller input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// Categorize maps an error to the category a failed article is reported with
func Categorize(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}

	var extErr *ExtractionError
	var resErr *ResolutionError
	var perErr *PersistenceError
	var valErr *ValidationError
	switch {
	case errors.As(err, &extErr):
		return CategoryExtraction
	case errors.As(err, &resErr):
		return CategoryResolution
	case errors.As(err, &perErr):
		return CategoryPersistence
	case errors.As(err, &valErr):
		return CategoryValidation
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return CategoryPersistence
	}
	return CategoryInternal
}
