package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRunInTx(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Failed transaction discards all writes", func(t *testing.T) {
		store := NewStore()

		err := store.RunInTx(ctx, func(tx *Store) error {
			require.NoError(t, tx.UpsertArticle(ctx, &model.Article{ID: 1, Title: "t"}))
			require.NoError(t, tx.InsertEntity(ctx, &model.CanonicalEntity{CanonicalName: "x", EntityType: model.EntityTypeOrg, FirstSeenAt: now}))
			return errors.New("abort")
		})
		assert.Error(t, err)

		_, err = store.SelectArticle(ctx, 1)
		assert.ErrorIs(t, err, model.ErrNotFound)
		entities, mentions, relationships := store.Counts()
		assert.Zero(t, entities+mentions+relationships)
	})

	t.Run("Cancelled context discards all writes", func(t *testing.T) {
		store := NewStore()
		cancelCtx, cancel := context.WithCancel(ctx)

		err := store.RunInTx(cancelCtx, func(tx *Store) error {
			require.NoError(t, tx.UpsertArticle(cancelCtx, &model.Article{ID: 2}))
			cancel()
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)

		_, err = store.SelectArticle(ctx, 2)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Successful transaction keeps writes", func(t *testing.T) {
		store := NewStore()

		err := store.RunInTx(ctx, func(tx *Store) error {
			return tx.UpsertArticle(ctx, &model.Article{ID: 3})
		})
		require.NoError(t, err)

		_, err = store.SelectArticle(ctx, 3)
		assert.NoError(t, err)
	})
}

func TestStoreFailNext(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	transient := &model.PersistenceError{Op: "test", Transient: true, Err: errors.New("connection reset")}

	store.FailNext(1, transient)
	err := store.UpsertArticle(ctx, &model.Article{ID: 1})
	assert.True(t, model.IsTransient(err))

	err = store.UpsertArticle(ctx, &model.Article{ID: 1})
	assert.NoError(t, err, "Expected only the first write to fail")
}

func TestStoreMergeEntities(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }

	newEntity := func(name string, entityType model.EntityType, seen time.Time) *model.CanonicalEntity {
		e := &model.CanonicalEntity{CanonicalName: name, NameTokens: []string{name}, EntityType: entityType, FirstSeenAt: seen}
		require.NoError(t, store.InsertEntity(ctx, e))
		return e
	}

	survivor := newEntity("joe biden", model.EntityTypePerson, day(5))
	loser := newEntity("joseph biden", model.EntityTypePerson, day(2))
	third := newEntity("white house", model.EntityTypeOrg, day(1))

	_, err := store.UpsertRelationship(ctx, survivor.ID, third.ID, model.RelationshipTypeCoOccurrence, day(6))
	require.NoError(t, err)
	_, err = store.UpsertRelationship(ctx, loser.ID, third.ID, model.RelationshipTypeCoOccurrence, day(3))
	require.NoError(t, err)
	_, err = store.UpsertRelationship(ctx, loser.ID, survivor.ID, model.RelationshipTypeCoOccurrence, day(4))
	require.NoError(t, err)

	merged, err := store.MergeEntities(ctx, survivor.ID, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, day(2), merged.FirstSeenAt)

	relationships, err := store.SelectRelationshipsByEntity(ctx, survivor.ID)
	require.NoError(t, err)
	require.Len(t, relationships, 1)
	assert.Equal(t, 2, relationships[0].ObservationCount)
	assert.Equal(t, day(3), relationships[0].FirstObservedAt)

	_, err = store.SelectEntity(ctx, loser.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
