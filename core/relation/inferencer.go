package relation

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

// Store is what the inferencer needs from the relationship storage.
// UpsertRelationship must increment the observation count atomically.
type Store interface {
	UpsertRelationship(ctx context.Context, entityAID int64, entityBID int64, relationshipType model.RelationshipType, observedAt time.Time) (*model.EntityRelationship, error)
}

// Pair is an unordered entity pair with the lower id in A
type Pair struct {
	A int64
	B int64
}

// Inferencer derives co-occurrence relationships from the entities resolved in one article
type Inferencer struct {
	relationshipType model.RelationshipType
	log              *slog.Logger
}

// NewInferencer creates an inferencer for co-occurrence relationships
func NewInferencer(logger *slog.Logger) *Inferencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inferencer{
		relationshipType: model.RelationshipTypeCoOccurrence,
		log:              logger,
	}
}

// Pairs returns every unordered pair of distinct entity ids, sorted by (A, B).
// Duplicate ids are collapsed first, so an entity mentioned twice yields no self pair.
func Pairs(entityIDs []int64) []Pair {
	ids := slices.Clone(entityIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	pairs := make([]Pair, 0, len(ids)*(len(ids)-1)/2)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, Pair{A: ids[i], B: ids[j]})
		}
	}
	return pairs
}

// Infer records one observation for every pair of distinct entities.
// The returned relationships are ordered by (EntityAID, EntityBID) and do not depend on input order.
func (i *Inferencer) Infer(ctx context.Context, store Store, entities []*model.CanonicalEntity, observedAt time.Time) ([]*model.EntityRelationship, error) {
	ids := make([]int64, 0, len(entities))
	for _, entity := range entities {
		if entity != nil {
			ids = append(ids, entity.ID)
		}
	}

	pairs := Pairs(ids)
	relationships := make([]*model.EntityRelationship, 0, len(pairs))
	for _, pair := range pairs {
		relationship, err := store.UpsertRelationship(ctx, pair.A, pair.B, i.relationshipType, observedAt)
		if err != nil {
			return nil, helper.NewError("upsert relationship", err)
		}
		relationships = append(relationships, relationship)
	}

	if len(relationships) > 0 {
		i.log.Debug("Inferred relationships", slog.Int("entities", len(ids)), slog.Int("relationships", len(relationships)))
	}

	return relationships, nil
}

// Confidence is the confidence of a relationship observed n times
func Confidence(n int) float64 {
	return model.RelationshipConfidence(n)
}
