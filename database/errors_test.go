package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
)

func TestWrapError(t *testing.T) {
	t.Run("Nil stays nil", func(t *testing.T) {
		assert.NoError(t, wrapError("select", nil))
	})

	t.Run("No rows becomes not found", func(t *testing.T) {
		err := wrapError("select entity", sql.ErrNoRows)
		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.Equal(t, model.CategoryNotFound, model.Categorize(err))
	})

	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"Serialization failure is transient", &pq.Error{Code: "40001"}, true},
		{"Deadlock is transient", &pq.Error{Code: "40P01"}, true},
		{"Connection failure is transient", &pq.Error{Code: "08006"}, true},
		{"Too many connections is transient", &pq.Error{Code: "53300"}, true},
		{"Admin shutdown is transient", &pq.Error{Code: "57P01"}, true},
		{"Deadline exceeded is transient", context.DeadlineExceeded, true},
		{"Unique violation is permanent", &pq.Error{Code: "23505"}, false},
		{"Check violation is permanent", &pq.Error{Code: "23514"}, false},
		{"Unknown error is permanent", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError("upsert relationship", tt.err)

			var perr *model.PersistenceError
			assert.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.transient, perr.Transient)
			assert.Equal(t, tt.transient, model.IsTransient(err))
			assert.Equal(t, model.CategoryPersistence, model.Categorize(err))
		})
	}
}
