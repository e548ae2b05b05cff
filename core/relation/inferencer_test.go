package relation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/siherrmann/newsgraph/database/memory"
	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntities(t *testing.T, store *memory.Store, names ...string) []*model.CanonicalEntity {
	entities := []*model.CanonicalEntity{}
	for _, name := range names {
		entity := &model.CanonicalEntity{CanonicalName: name, NameTokens: []string{name}, EntityType: model.EntityTypeOrg, FirstSeenAt: time.Now()}
		require.NoError(t, store.InsertEntity(context.Background(), entity))
		entities = append(entities, entity)
	}
	return entities
}

func TestPairs(t *testing.T) {
	t.Run("No pairs for fewer than two entities", func(t *testing.T) {
		assert.Empty(t, Pairs(nil))
		assert.Empty(t, Pairs([]int64{4}))
		assert.Empty(t, Pairs([]int64{4, 4, 4}), "Expected repeated entity to yield no self pair")
	})

	t.Run("Pairs are ordered and unique", func(t *testing.T) {
		pairs := Pairs([]int64{9, 3, 5, 3})
		assert.Equal(t, []Pair{{3, 5}, {3, 9}, {5, 9}}, pairs)
	})

	t.Run("Input order does not change the pairs", func(t *testing.T) {
		assert.Equal(t, Pairs([]int64{1, 2, 3}), Pairs([]int64{3, 1, 2}))
	})
}

func TestInferencer(t *testing.T) {
	ctx := context.Background()
	first := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	t.Run("Apple and Tim Cook in two articles are observed twice", func(t *testing.T) {
		store := memory.NewStore()
		inferencer := NewInferencer(nil)
		entities := newEntities(t, store, "apple", "tim cook")

		_, err := inferencer.Infer(ctx, store, entities, first)
		require.NoError(t, err)
		relationships, err := inferencer.Infer(ctx, store, []*model.CanonicalEntity{entities[1], entities[0]}, second)
		require.NoError(t, err)

		require.Len(t, relationships, 1)
		rel := relationships[0]
		assert.Equal(t, entities[0].ID, rel.EntityAID)
		assert.Equal(t, entities[1].ID, rel.EntityBID)
		assert.Equal(t, 2, rel.ObservationCount, "Expected observation count to be 2")
		assert.Equal(t, first, rel.FirstObservedAt)
		assert.Equal(t, second, rel.LastObservedAt)
		assert.InDelta(t, 2.0/3.0, rel.Confidence, 1e-9)
		assert.Equal(t, model.RelationshipTypeCoOccurrence, rel.RelationshipType)
	})

	t.Run("Relationships are symmetric", func(t *testing.T) {
		store := memory.NewStore()
		inferencer := NewInferencer(nil)
		entities := newEntities(t, store, "a", "b")

		_, err := inferencer.Infer(ctx, store, entities, first)
		require.NoError(t, err)

		fromA, err := store.SelectRelationshipsByEntity(ctx, entities[0].ID)
		require.NoError(t, err)
		fromB, err := store.SelectRelationshipsByEntity(ctx, entities[1].ID)
		require.NoError(t, err)
		require.Len(t, fromA, 1)
		require.Len(t, fromB, 1)
		assert.Equal(t, fromA[0].ID, fromB[0].ID)
		assert.Equal(t, entities[1].ID, fromA[0].Other(entities[0].ID))
		assert.Equal(t, entities[0].ID, fromB[0].Other(entities[1].ID))
	})

	t.Run("Entity mentioned twice yields no self relationship", func(t *testing.T) {
		store := memory.NewStore()
		inferencer := NewInferencer(nil)
		entities := newEntities(t, store, "a", "b", "c")

		relationships, err := inferencer.Infer(ctx, store, []*model.CanonicalEntity{entities[2], entities[0], entities[2], entities[1], entities[0]}, first)
		require.NoError(t, err)
		require.Len(t, relationships, 3)
		for i, rel := range relationships {
			assert.Less(t, rel.EntityAID, rel.EntityBID)
			assert.Equal(t, 1, rel.ObservationCount)
			if i > 0 {
				prev := relationships[i-1]
				assert.True(t, prev.EntityAID < rel.EntityAID || (prev.EntityAID == rel.EntityAID && prev.EntityBID < rel.EntityBID), "Expected relationships sorted by pair")
			}
		}
	})

	t.Run("Single entity yields nothing", func(t *testing.T) {
		store := memory.NewStore()
		entities := newEntities(t, store, "solo")
		relationships, err := NewInferencer(nil).Infer(ctx, store, entities, first)
		require.NoError(t, err)
		assert.Empty(t, relationships)
	})

	t.Run("Store failure is returned", func(t *testing.T) {
		store := memory.NewStore()
		entities := newEntities(t, store, "a", "b")
		failure := &model.PersistenceError{Op: "upsert", Transient: true, Err: errors.New("connection reset")}
		store.FailNext(1, failure)

		_, err := NewInferencer(nil).Infer(ctx, store, entities, first)
		assert.Error(t, err)
		assert.True(t, model.IsTransient(err))
	})
}

func TestConfidence(t *testing.T) {
	t.Run("Confidence grows with observations and stays below one", func(t *testing.T) {
		previous := Confidence(0)
		for n := 1; n <= 1000; n++ {
			c := Confidence(n)
			assert.GreaterOrEqual(t, c, previous)
			assert.Less(t, c, 1.0)
			previous = c
		}
		assert.Equal(t, 0.5, Confidence(1))
	})
}
