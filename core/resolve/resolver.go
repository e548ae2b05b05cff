package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

// scoreEpsilon is the tolerance under which two scores count as a tie
const scoreEpsilon = 1e-9

// Store is what the resolver needs from the entity storage
type Store interface {
	SelectCandidates(ctx context.Context, entityType model.EntityType, name string, tokens []string, limit int) ([]*model.CanonicalEntity, error)
	InsertEntity(ctx context.Context, entity *model.CanonicalEntity) error
	TouchEntity(ctx context.Context, id int64, seenAt time.Time) (*model.CanonicalEntity, error)
}

// Resolver maps raw mentions to canonical entities
type Resolver struct {
	threshold      float64
	minLength      int
	candidateLimit int
	log            *slog.Logger
}

// NewResolver creates a resolver with the thresholds of config
func NewResolver(config model.PipelineConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		threshold:      config.SimilarityThreshold,
		minLength:      config.MinMentionLength,
		candidateLimit: config.CandidateLimit,
		log:            logger,
	}
}

// Threshold returns the similarity a candidate needs to be matched
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Prepare normalizes the mention text and rejects mentions that are too short to resolve
func (r *Resolver) Prepare(mention model.RawMention) (Name, error) {
	if !mention.Label.Valid() {
		return Name{}, &model.ValidationError{Field: "label", Message: fmt.Sprintf("unknown entity type %q", mention.Label)}
	}

	name := Normalize(mention.Text, mention.Label)
	if utf8.RuneCountInString(name.Text) < r.minLength || initialsOnly(name.Tokens) ||
		(mention.Label == model.EntityTypePerson && titlesOnly(name.Tokens)) {
		return Name{}, &model.ResolutionError{Reason: model.ReasonTooAmbiguous, Mention: mention.Text}
	}
	return name, nil
}

// Match picks the best candidate for name, or nil when no candidate reaches the threshold.
// Ties on score go to the candidate with more mentions, then the one seen last, then the lower id.
func (r *Resolver) Match(name Name, candidates []*model.CanonicalEntity) (*model.CanonicalEntity, float64) {
	var best *model.CanonicalEntity
	bestScore := 0.0

	for _, candidate := range candidates {
		score := Similarity(name, NameOf(candidate))
		if score+scoreEpsilon < r.threshold {
			continue
		}
		if best == nil || score > bestScore+scoreEpsilon || (score > bestScore-scoreEpsilon && preferred(candidate, best)) {
			best = candidate
			bestScore = max(bestScore, score)
		}
	}

	return best, bestScore
}

// Resolve returns the canonical entity for mention.
// A matched entity has its last seen moved to seenAt; without a match a new entity is created.
// Concurrent resolutions of the same new name may create duplicates; the merge pass folds them.
func (r *Resolver) Resolve(ctx context.Context, store Store, mention model.RawMention, seenAt time.Time) (*model.CanonicalEntity, error) {
	name, err := r.Prepare(mention)
	if err != nil {
		return nil, err
	}

	candidates, err := store.SelectCandidates(ctx, mention.Label, name.Text, name.Tokens, r.candidateLimit)
	if err != nil {
		return nil, helper.NewError("select candidates", err)
	}

	match, score := r.Match(name, candidates)
	if match != nil {
		touched, err := store.TouchEntity(ctx, match.ID, seenAt)
		if err != nil {
			return nil, helper.NewError("touch entity", err)
		}
		r.log.Debug("Resolved mention", slog.String("mention", mention.Text), slog.Int64("entity_id", touched.ID), slog.Float64("score", score))
		return touched, nil
	}

	entity := &model.CanonicalEntity{
		CanonicalName: name.Text,
		NameTokens:    name.Tokens,
		EntityType:    mention.Label,
		FirstSeenAt:   seenAt,
		LastSeenAt:    seenAt,
	}
	err = store.InsertEntity(ctx, entity)
	if err != nil {
		return nil, helper.NewError("insert entity", err)
	}
	r.log.Debug("Created canonical entity", slog.String("mention", mention.Text), slog.Int64("entity_id", entity.ID), slog.String("canonical_name", entity.CanonicalName))

	return entity, nil
}

// preferred reports whether a wins a score tie against b
func preferred(a, b *model.CanonicalEntity) bool {
	if a.MentionCount != b.MentionCount {
		return a.MentionCount > b.MentionCount
	}
	if !a.LastSeenAt.Equal(b.LastSeenAt) {
		return a.LastSeenAt.After(b.LastSeenAt)
	}
	return a.ID < b.ID
}

// initialsOnly reports whether every token is a single rune ("j", "j f k")
func initialsOnly(tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) > 1 {
			return false
		}
	}
	return true
}
