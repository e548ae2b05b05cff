package resolve

import (
	"context"
	"log/slog"
	"slices"

	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

// MergeStore is what the merge pass needs from the entity storage.
// MergeEntities has to fold mentions and relationships atomically.
type MergeStore interface {
	SelectEntitiesByType(ctx context.Context, entityType model.EntityType, limit int) ([]*model.CanonicalEntity, error)
	MergeEntities(ctx context.Context, survivorID int64, loserID int64) (*model.CanonicalEntity, error)
}

// DuplicatePair is a near-duplicate found by the merge pass
type DuplicatePair struct {
	Survivor *model.CanonicalEntity `json:"survivor"`
	Loser    *model.CanonicalEntity `json:"loser"`
	Score    float64                `json:"score"`
}

// MergeReport summarizes one merge pass
type MergeReport struct {
	Scanned int             `json:"scanned"`
	Merged  []DuplicatePair `json:"merged"`
	Errors  []string        `json:"errors,omitempty"`
}

// Merger reconciles near-duplicate canonical entities offline
type Merger struct {
	store     MergeStore
	threshold float64
	log       *slog.Logger
}

// NewMerger creates a merger using the merge threshold of config
func NewMerger(store MergeStore, config model.PipelineConfig, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{
		store:     store,
		threshold: config.MergeThreshold,
		log:       logger,
	}
}

// FindDuplicates returns the duplicate pairs among entities of one type.
// Entities are visited in survivor order (most mentions, earliest first seen, lowest id)
// and every later entity similar enough to a visited one becomes its loser.
// Each entity is part of at most one pair as loser, so pairs never chain.
func (m *Merger) FindDuplicates(ctx context.Context, entityType model.EntityType) ([]DuplicatePair, error) {
	entities, err := m.store.SelectEntitiesByType(ctx, entityType, 0)
	if err != nil {
		return nil, helper.NewError("select entities by type", err)
	}

	return m.duplicates(entities), nil
}

func (m *Merger) duplicates(entities []*model.CanonicalEntity) []DuplicatePair {
	entities = slices.Clone(entities)
	slices.SortFunc(entities, func(a, b *model.CanonicalEntity) int {
		if survivorFirst(a, b) {
			return -1
		}
		if survivorFirst(b, a) {
			return 1
		}
		return 0
	})

	pairs := []DuplicatePair{}
	absorbed := make([]bool, len(entities))
	for i, survivor := range entities {
		if absorbed[i] {
			continue
		}
		survivorName := NameOf(survivor)
		for j := i + 1; j < len(entities); j++ {
			if absorbed[j] {
				continue
			}
			score := MergeSimilarity(survivorName, NameOf(entities[j]))
			if score+scoreEpsilon >= m.threshold {
				absorbed[j] = true
				pairs = append(pairs, DuplicatePair{Survivor: survivor, Loser: entities[j], Score: score})
			}
		}
	}

	return pairs
}

// Merge folds loser into survivor, choosing the actual survivor by mentions,
// first seen and id, so the argument order does not matter.
func (m *Merger) Merge(ctx context.Context, a *model.CanonicalEntity, b *model.CanonicalEntity) (*model.CanonicalEntity, error) {
	survivor, loser := a, b
	if survivorFirst(b, a) {
		survivor, loser = b, a
	}

	merged, err := m.store.MergeEntities(ctx, survivor.ID, loser.ID)
	if err != nil {
		return nil, helper.NewError("merge entities", err)
	}

	m.log.Info("Merged canonical entities",
		slog.Int64("survivor_id", survivor.ID),
		slog.Int64("loser_id", loser.ID),
		slog.String("survivor_name", survivor.CanonicalName),
		slog.String("loser_name", loser.CanonicalName),
	)

	return merged, nil
}

// Run merges all duplicate pairs of every entity type.
// A failed pair is reported and the pass continues.
func (m *Merger) Run(ctx context.Context) (*MergeReport, error) {
	report := &MergeReport{Merged: []DuplicatePair{}}

	for _, entityType := range model.EntityTypes {
		entities, err := m.store.SelectEntitiesByType(ctx, entityType, 0)
		if err != nil {
			return report, helper.NewError("select entities by type", err)
		}
		report.Scanned += len(entities)

		for _, pair := range m.duplicates(entities) {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			_, err := m.store.MergeEntities(ctx, pair.Survivor.ID, pair.Loser.ID)
			if err != nil {
				m.log.Error("Merge failed", slog.Int64("survivor_id", pair.Survivor.ID), slog.Int64("loser_id", pair.Loser.ID), slog.String("error", err.Error()))
				report.Errors = append(report.Errors, err.Error())
				continue
			}
			report.Merged = append(report.Merged, pair)
		}
	}

	m.log.Info("Merge pass finished", slog.Int("scanned", report.Scanned), slog.Int("merged", len(report.Merged)), slog.Int("errors", len(report.Errors)))

	return report, nil
}

// survivorFirst reports whether a should survive a merge with b
func survivorFirst(a, b *model.CanonicalEntity) bool {
	if a.MentionCount != b.MentionCount {
		return a.MentionCount > b.MentionCount
	}
	if !a.FirstSeenAt.Equal(b.FirstSeenAt) {
		return a.FirstSeenAt.Before(b.FirstSeenAt)
	}
	return a.ID < b.ID
}
