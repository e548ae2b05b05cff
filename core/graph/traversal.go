package graph

import (
	"context"

	"github.com/siherrmann/newsgraph/model"
)

// GraphDB defines what traversal needs from the entity storage
type GraphDB interface {
	SelectEntity(ctx context.Context, id int64) (*model.CanonicalEntity, error)
	SelectRelationshipsByEntity(ctx context.Context, entityID int64) ([]*model.EntityRelationship, error)
}

// TraversalResult contains an entity and its distance from the source
type TraversalResult struct {
	Entity   *model.CanonicalEntity `json:"entity"`
	Distance int                    `json:"distance"`
	Path     []int64                `json:"path"` // Path from source to this entity
}

// BFS performs breadth-first search over relationships from a source entity.
// Relationships observed fewer than minObservations times are not followed.
func BFS(ctx context.Context, db GraphDB, sourceID int64, maxHops int, minObservations int) ([]*TraversalResult, error) {
	sourceEntity, err := db.SelectEntity(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	visited := map[int64]bool{sourceID: true}
	queue := []TraversalResult{{
		Entity:   sourceEntity,
		Distance: 0,
		Path:     []int64{sourceID},
	}}

	var results []*TraversalResult
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		results = append(results, &current)

		// Stop if we've reached max hops
		if current.Distance >= maxHops {
			continue
		}

		relationships, err := db.SelectRelationshipsByEntity(ctx, current.Entity.ID)
		if err != nil {
			return nil, err
		}

		for _, rel := range relationships {
			if rel.ObservationCount < minObservations {
				continue
			}
			targetID := rel.Other(current.Entity.ID)
			if visited[targetID] {
				continue
			}

			targetEntity, err := db.SelectEntity(ctx, targetID)
			if err != nil {
				continue // Skip entities merged away in the meantime
			}
			visited[targetID] = true

			newPath := make([]int64, len(current.Path), len(current.Path)+1)
			copy(newPath, current.Path)
			newPath = append(newPath, targetID)

			queue = append(queue, TraversalResult{
				Entity:   targetEntity,
				Distance: current.Distance + 1,
				Path:     newPath,
			})
		}
	}

	return results, nil
}

// GetNeighbors retrieves the directly related entities (1-hop) of an entity
func GetNeighbors(ctx context.Context, db GraphDB, entityID int64, minObservations int) ([]*model.CanonicalEntity, error) {
	results, err := BFS(ctx, db, entityID, 1, minObservations)
	if err != nil {
		return nil, err
	}

	// Skip the source entity itself (first result)
	neighbors := make([]*model.CanonicalEntity, 0, len(results)-1)
	for i := 1; i < len(results); i++ {
		neighbors = append(neighbors, results[i].Entity)
	}

	return neighbors, nil
}
