package graph

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

// MockGraphDB wraps the memory store to inject relationship lookup failures
type MockGraphDB struct {
	*memory.Store
	failRelationships bool
}

func (m *MockGraphDB) SelectRelationshipsByEntity(ctx context.Context, entityID int64) ([]*model.EntityRelationship, error) {
	if m.failRelationships {
		return nil, errors.New("relationships unavailable")
	}
	return m.Store.SelectRelationshipsByEntity(ctx, entityID)
}

func TestBFS(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewStore()

	// Create test graph: A - B - C
	//                    A - D (observed three times)
	ids := map[string]int64{}
	for _, name := range []string{"a", "b", "c", "d", "isolated"} {
		entity := &model.CanonicalEntity{CanonicalName: name, NameTokens: []string{name}, EntityType: model.EntityTypeOrg, FirstSeenAt: now}
		require.NoError(t, store.InsertEntity(ctx, entity))
		ids[name] = entity.ID
	}
	observe := func(a, b string, times int) {
		for i := 0; i < times; i++ {
			_, err := store.UpsertRelationship(ctx, ids[a], ids[b], model.RelationshipTypeCoOccurrence, now)
			require.NoError(t, err)
		}
	}
	observe("a", "b", 1)
	observe("c", "b", 1)
	observe("d", "a", 3)

	mockDB := &MockGraphDB{Store: store}

	t.Run("BFS from source with max hops 1", func(t *testing.T) {
		results, err := BFS(ctx, mockDB, ids["a"], 1, 0)

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 3, "Expected source and two neighbors")
		assert.Equal(t, ids["a"], results[0].Entity.ID, "Expected first result to be source")
		assert.Equal(t, 0, results[0].Distance, "Expected source distance to be 0")
		assert.Equal(t, ids["d"], results[1].Entity.ID, "Expected strongest relationship to be visited first")
	})

	t.Run("BFS from source with max hops 2", func(t *testing.T) {
		results, err := BFS(ctx, mockDB, ids["a"], 2, 0)

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 4, "Expected all connected entities")

		last := results[3]
		assert.Equal(t, ids["c"], last.Entity.ID)
		assert.Equal(t, 2, last.Distance)
		assert.Equal(t, []int64{ids["a"], ids["b"], ids["c"]}, last.Path)
	})

	t.Run("BFS follows relationships in both directions", func(t *testing.T) {
		results, err := BFS(ctx, mockDB, ids["c"], 2, 0)

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 3)
		assert.Equal(t, ids["b"], results[1].Entity.ID)
		assert.Equal(t, ids["a"], results[2].Entity.ID)
	})

	t.Run("BFS with minimum observations", func(t *testing.T) {
		results, err := BFS(ctx, mockDB, ids["a"], 2, 2)

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 2, "Expected only the strong relationship to be followed")
		assert.Equal(t, ids["d"], results[1].Entity.ID)
	})

	t.Run("BFS from isolated entity", func(t *testing.T) {
		results, err := BFS(ctx, mockDB, ids["isolated"], 2, 0)

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 1, "Expected only source node for isolated entity")
		assert.Equal(t, 0, results[0].Distance, "Expected distance to be 0")
	})

	t.Run("BFS with max hops 0", func(t *testing.T) {
		results, err := BFS(ctx, mockDB, ids["a"], 0, 0)

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 1, "Expected only source node for max hops 0")
	})

	t.Run("BFS from missing entity", func(t *testing.T) {
		_, err := BFS(ctx, mockDB, 9999, 2, 0)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("BFS returns relationship errors", func(t *testing.T) {
		failing := &MockGraphDB{Store: store, failRelationships: true}
		_, err := BFS(ctx, failing, ids["a"], 1, 0)
		assert.Error(t, err)
	})
}

func TestGetNeighbors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Now()

	var entities []*model.CanonicalEntity
	for _, name := range []string{"apple", "tim cook", "cupertino"} {
		entity := &model.CanonicalEntity{CanonicalName: name, NameTokens: []string{name}, EntityType: model.EntityTypeOrg, FirstSeenAt: now}
		require.NoError(t, store.InsertEntity(ctx, entity))
		entities = append(entities, entity)
	}
	_, err := store.UpsertRelationship(ctx, entities[0].ID, entities[1].ID, model.RelationshipTypeCoOccurrence, now)
	require.NoError(t, err)

	t.Run("Get neighbors excludes the source", func(t *testing.T) {
		neighbors, err := GetNeighbors(ctx, store, entities[0].ID, 0)
		assert.NoError(t, err)
		require.Len(t, neighbors, 1)
		assert.Equal(t, "tim cook", neighbors[0].CanonicalName)
	})

	t.Run("Get neighbors of unrelated entity", func(t *testing.T) {
		neighbors, err := GetNeighbors(ctx, store, entities[2].ID, 0)
		assert.NoError(t, err)
		assert.Empty(t, neighbors)
	})
}
