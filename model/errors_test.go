package model

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCategory
	}{
		{"Nil error", nil, CategoryNone},
		{"Extraction error", &ExtractionError{Reason: "model unavailable"}, CategoryExtraction},
		{"Wrapped resolution error", fmt.Errorf("resolve: %w", &ResolutionError{Reason: ReasonTooAmbiguous, Mention: "J"}), CategoryResolution},
		{"Persistence error", &PersistenceError{Op: "insert", Err: errors.New("boom")}, CategoryPersistence},
		{"Validation error", &ValidationError{Field: "period", Message: "unknown"}, CategoryValidation},
		{"Not found", fmt.Errorf("select: %w", ErrNotFound), CategoryNotFound},
		{"Deadline exceeded", context.DeadlineExceeded, CategoryPersistence},
		{"Plain error", errors.New("something else"), CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Categorize(tt.err))
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	t.Run("IsTooAmbiguous matches wrapped resolution errors", func(t *testing.T) {
		err := fmt.Errorf("mention: %w", &ResolutionError{Reason: ReasonTooAmbiguous, Mention: "X"})
		assert.True(t, IsTooAmbiguous(err))
		assert.False(t, IsTooAmbiguous(errors.New("other")))
	})

	t.Run("IsTransient only for transient persistence errors", func(t *testing.T) {
		assert.True(t, IsTransient(&PersistenceError{Op: "commit", Transient: true, Err: errors.New("conn reset")}))
		assert.False(t, IsTransient(&PersistenceError{Op: "insert", Err: errors.New("check violation")}))
		assert.False(t, IsTransient(errors.New("plain")))
	})

	t.Run("PersistenceError unwraps to the cause", func(t *testing.T) {
		cause := errors.New("cause")
		err := &PersistenceError{Op: "insert", Err: cause}
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "permanent")
	})
}
