// Package memory is an in-process store with the same method set as the
// database handlers. It backs tests of the pipeline packages and small
// embedded setups that do not need PostgreSQL.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

type pairKey struct {
	a, b int64
	t    model.RelationshipType
}

type state struct {
	articles      map[int64]model.Article
	entities      map[int64]model.CanonicalEntity
	mentions      []model.EntityMentionContext
	relationships map[pairKey]model.EntityRelationship
	nextEntityID  int64
	nextMentionID int64
	nextRelID     int64
}

func (s *state) clone() *state {
	c := *s
	c.articles = maps.Clone(s.articles)
	c.entities = maps.Clone(s.entities)
	c.mentions = slices.Clone(s.mentions)
	c.relationships = maps.Clone(s.relationships)
	return &c
}

// Store keeps articles, entities, mentions and relationships in maps
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	s    *state

	// failures injected by FailNext
	failMu    sync.Mutex
	failErr   error
	failCount int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		s: &state{
			articles:      map[int64]model.Article{},
			entities:      map[int64]model.CanonicalEntity{},
			relationships: map[pairKey]model.EntityRelationship{},
		},
	}
}

// FailNext makes the next n write operations return err
func (m *Store) FailNext(n int, err error) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	m.failCount = n
	m.failErr = err
}

func (m *Store) injectedFailure() error {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	if m.failCount <= 0 {
		return nil
	}
	m.failCount--
	return m.failErr
}

// RunInTx runs fn with exclusive write access.
// All changes made by fn are discarded if it returns an error or ctx is done.
func (m *Store) RunInTx(ctx context.Context, fn func(tx *Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := m.s.clone()
	m.mu.RUnlock()

	err := fn(m)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		m.mu.Lock()
		m.s = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// UpsertArticle inserts the article or refreshes its metadata
func (m *Store) UpsertArticle(ctx context.Context, article *model.Article) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.s.articles[article.ID]
	if !ok {
		stored = model.Article{ID: article.ID, CreatedAt: time.Now().UTC(), Metadata: model.Metadata{}}
	}
	stored.Title = article.Title
	stored.URL = article.URL
	stored.Source = article.Source
	if !article.PublishedAt.IsZero() {
		stored.PublishedAt = article.PublishedAt.UTC()
	}
	stored.Metadata = stored.Metadata.Merge(article.Metadata)
	m.s.articles[article.ID] = stored

	content := article.Content
	*article = stored
	article.Content = content
	return nil
}

// SelectArticle retrieves an article by ID
func (m *Store) SelectArticle(ctx context.Context, id int64) (*model.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	article, ok := m.s.articles[id]
	if !ok {
		return nil, helper.NewError("select article", model.ErrNotFound)
	}
	return &article, nil
}

// MarkArticleProcessed sets the processed marker of an article
func (m *Store) MarkArticleProcessed(ctx context.Context, id int64, processedAt time.Time) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	article, ok := m.s.articles[id]
	if !ok {
		return helper.NewError("mark article processed", model.ErrNotFound)
	}
	at := processedAt.UTC()
	article.ProcessedAt = &at
	m.s.articles[id] = article
	return nil
}

// InsertEntity inserts a new canonical entity
func (m *Store) InsertEntity(ctx context.Context, entity *model.CanonicalEntity) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	if !entity.EntityType.Valid() {
		return &model.ValidationError{Field: "entity_type", Message: fmt.Sprintf("unknown entity type %q", entity.EntityType)}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.s.nextEntityID++
	stored := model.CanonicalEntity{
		ID:            m.s.nextEntityID,
		RID:           uuid.New(),
		CanonicalName: entity.CanonicalName,
		NameTokens:    slices.Clone(entity.NameTokens),
		EntityType:    entity.EntityType,
		FirstSeenAt:   entity.FirstSeenAt.UTC(),
		LastSeenAt:    entity.FirstSeenAt.UTC(),
		Metadata:      model.Metadata{}.Merge(entity.Metadata),
		CreatedAt:     time.Now().UTC(),
	}
	m.s.entities[stored.ID] = stored
	*entity = stored
	return nil
}

// SelectEntity retrieves an entity by ID
func (m *Store) SelectEntity(ctx context.Context, id int64) (*model.CanonicalEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	entity, ok := m.s.entities[id]
	if !ok {
		return nil, helper.NewError("select entity", model.ErrNotFound)
	}
	return &entity, nil
}

// SelectCandidates returns same-type entities sharing a name token or a name substring
func (m *Store) SelectCandidates(ctx context.Context, entityType model.EntityType, name string, tokens []string, limit int) ([]*model.CanonicalEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := []*model.CanonicalEntity{}
	for _, e := range m.s.entities {
		if e.EntityType != entityType {
			continue
		}
		shared := slices.ContainsFunc(e.NameTokens, func(tok string) bool { return slices.Contains(tokens, tok) })
		if shared || strings.Contains(e.CanonicalName, name) || strings.Contains(name, e.CanonicalName) {
			entity := e
			candidates = append(candidates, &entity)
		}
	}
	slices.SortFunc(candidates, func(a, b *model.CanonicalEntity) int { return int(a.ID - b.ID) })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// TouchEntity widens the seen window of an entity to include seenAt
func (m *Store) TouchEntity(ctx context.Context, id int64, seenAt time.Time) (*model.CanonicalEntity, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entity, ok := m.s.entities[id]
	if !ok {
		return nil, helper.NewError("touch entity", model.ErrNotFound)
	}
	seenAt = seenAt.UTC()
	if seenAt.After(entity.LastSeenAt) {
		entity.LastSeenAt = seenAt
	}
	if seenAt.Before(entity.FirstSeenAt) {
		entity.FirstSeenAt = seenAt
	}
	m.s.entities[id] = entity
	return &entity, nil
}

// SelectEntitiesByType returns entities of a type, most mentioned first
func (m *Store) SelectEntitiesByType(ctx context.Context, entityType model.EntityType, limit int) ([]*model.CanonicalEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	entities := []*model.CanonicalEntity{}
	for _, e := range m.s.entities {
		if e.EntityType == entityType {
			entity := e
			entities = append(entities, &entity)
		}
	}
	slices.SortFunc(entities, func(a, b *model.CanonicalEntity) int {
		if a.MentionCount != b.MentionCount {
			return b.MentionCount - a.MentionCount
		}
		if !a.FirstSeenAt.Equal(b.FirstSeenAt) {
			return a.FirstSeenAt.Compare(b.FirstSeenAt)
		}
		return int(a.ID - b.ID)
	})
	if limit > 0 && len(entities) > limit {
		entities = entities[:limit]
	}
	return entities, nil
}

// MergeEntities folds the loser into the survivor with the same rules as the SQL merge
func (m *Store) MergeEntities(ctx context.Context, survivorID int64, loserID int64) (*model.CanonicalEntity, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	if survivorID == loserID {
		return nil, &model.ValidationError{Field: "loser_id", Message: "cannot merge entity into itself"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	survivor, ok := m.s.entities[survivorID]
	loser, ok2 := m.s.entities[loserID]
	if !ok || !ok2 {
		return nil, helper.NewError("merge entities", model.ErrNotFound)
	}
	if survivor.EntityType != loser.EntityType {
		return nil, &model.ValidationError{Field: "entity_type", Message: "entity types differ"}
	}

	a, b := model.OrderedPair(survivorID, loserID)
	for key := range m.s.relationships {
		if key.a == a && key.b == b {
			delete(m.s.relationships, key)
		}
	}

	for key, rel := range m.s.relationships {
		if key.a != loserID && key.b != loserID {
			continue
		}
		delete(m.s.relationships, key)

		other := rel.Other(loserID)
		na, nb := model.OrderedPair(survivorID, other)
		target := pairKey{a: na, b: nb, t: key.t}
		existing, found := m.s.relationships[target]
		if !found {
			rel.EntityAID, rel.EntityBID = na, nb
			m.s.relationships[target] = rel
			continue
		}
		existing.ObservationCount += rel.ObservationCount
		if rel.FirstObservedAt.Before(existing.FirstObservedAt) {
			existing.FirstObservedAt = rel.FirstObservedAt
		}
		if rel.LastObservedAt.After(existing.LastObservedAt) {
			existing.LastObservedAt = rel.LastObservedAt
		}
		existing.Confidence = model.RelationshipConfidence(existing.ObservationCount)
		m.s.relationships[target] = existing
	}

	for i := range m.s.mentions {
		if m.s.mentions[i].CanonicalEntityID == loserID {
			m.s.mentions[i].CanonicalEntityID = survivorID
		}
	}

	survivor.MentionCount += loser.MentionCount
	if loser.FirstSeenAt.Before(survivor.FirstSeenAt) {
		survivor.FirstSeenAt = loser.FirstSeenAt
	}
	if loser.LastSeenAt.After(survivor.LastSeenAt) {
		survivor.LastSeenAt = loser.LastSeenAt
	}
	survivor.Metadata = loser.Metadata.Merge(survivor.Metadata)
	m.s.entities[survivorID] = survivor
	delete(m.s.entities, loserID)

	return &survivor, nil
}

// InsertMention appends a mention context and bumps the entity's mention count
func (m *Store) InsertMention(ctx context.Context, mention *model.EntityMentionContext) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	if mention.SentimentScore != nil && (*mention.SentimentScore < -1 || *mention.SentimentScore > 1) {
		return &model.ValidationError{Field: "sentiment_score", Message: "must be in [-1, 1]"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entity, ok := m.s.entities[mention.CanonicalEntityID]
	if !ok {
		return helper.NewError("insert mention", model.ErrNotFound)
	}
	if _, ok := m.s.articles[mention.ArticleID]; !ok {
		return helper.NewError("insert mention", model.ErrNotFound)
	}

	m.s.nextMentionID++
	stored := *mention
	stored.ID = m.s.nextMentionID
	stored.MentionedAt = mention.MentionedAt.UTC()
	stored.CreatedAt = time.Now().UTC()
	m.s.mentions = append(m.s.mentions, stored)

	entity.MentionCount++
	m.s.entities[entity.ID] = entity

	*mention = stored
	return nil
}

// SelectMentionsByEntity returns an entity's mentions ordered by mention time
func (m *Store) SelectMentionsByEntity(ctx context.Context, entityID int64, dateRange *model.DateRange) ([]*model.EntityMentionContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	mentions := []*model.EntityMentionContext{}
	for _, mention := range m.s.mentions {
		if mention.CanonicalEntityID == entityID && dateRange.Contains(mention.MentionedAt) {
			mc := mention
			mentions = append(mentions, &mc)
		}
	}
	slices.SortStableFunc(mentions, func(a, b *model.EntityMentionContext) int {
		return a.MentionedAt.Compare(b.MentionedAt)
	})
	return mentions, nil
}

// SelectMentionsByArticle returns the mentions recorded for an article
func (m *Store) SelectMentionsByArticle(ctx context.Context, articleID int64) ([]*model.EntityMentionContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	mentions := []*model.EntityMentionContext{}
	for _, mention := range m.s.mentions {
		if mention.ArticleID == articleID {
			mc := mention
			mentions = append(mentions, &mc)
		}
	}
	return mentions, nil
}

// UpsertRelationship records one co-observation of an unordered pair
func (m *Store) UpsertRelationship(ctx context.Context, entityAID int64, entityBID int64, relationshipType model.RelationshipType, observedAt time.Time) (*model.EntityRelationship, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	if entityAID == entityBID {
		return nil, &model.ValidationError{Field: "entity_b_id", Message: "relationship with itself"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	a, b := model.OrderedPair(entityAID, entityBID)
	observedAt = observedAt.UTC()
	key := pairKey{a: a, b: b, t: relationshipType}

	rel, ok := m.s.relationships[key]
	if !ok {
		m.s.nextRelID++
		rel = model.EntityRelationship{
			ID:               m.s.nextRelID,
			EntityAID:        a,
			EntityBID:        b,
			RelationshipType: relationshipType,
			FirstObservedAt:  observedAt,
			LastObservedAt:   observedAt,
		}
	}
	rel.ObservationCount++
	if observedAt.Before(rel.FirstObservedAt) {
		rel.FirstObservedAt = observedAt
	}
	if observedAt.After(rel.LastObservedAt) {
		rel.LastObservedAt = observedAt
	}
	rel.Confidence = model.RelationshipConfidence(rel.ObservationCount)
	m.s.relationships[key] = rel

	return &rel, nil
}

// SelectRelationshipsByEntity returns all relationships of an entity, strongest first
func (m *Store) SelectRelationshipsByEntity(ctx context.Context, entityID int64) ([]*model.EntityRelationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	relationships := []*model.EntityRelationship{}
	for _, rel := range m.s.relationships {
		if rel.EntityAID == entityID || rel.EntityBID == entityID {
			r := rel
			relationships = append(relationships, &r)
		}
	}
	slices.SortFunc(relationships, func(x, y *model.EntityRelationship) int {
		if x.ObservationCount != y.ObservationCount {
			return y.ObservationCount - x.ObservationCount
		}
		if x.EntityAID != y.EntityAID {
			return int(x.EntityAID - y.EntityAID)
		}
		return int(x.EntityBID - y.EntityBID)
	})
	return relationships, nil
}

// Counts returns the number of stored entities, mentions and relationships
func (m *Store) Counts() (entities int, mentions int, relationships int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.s.entities), len(m.s.mentions), len(m.s.relationships)
}

func (m *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &model.PersistenceError{Op: "memory", Transient: errors.Is(err, context.DeadlineExceeded), Err: err}
	}
	return m.injectedFailure()
}
