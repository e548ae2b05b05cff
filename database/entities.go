package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
	loadSql "github.com/siherrmann/newsgraph/sql"
)

// EntitiesDBHandlerFunctions defines the interface for canonical entity database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(ctx context.Context, entity *model.CanonicalEntity) error
	SelectEntity(ctx context.Context, id int64) (*model.CanonicalEntity, error)
	SelectEntityByRID(ctx context.Context, rid uuid.UUID) (*model.CanonicalEntity, error)
	SelectCandidates(ctx context.Context, entityType model.EntityType, name string, tokens []string, limit int) ([]*model.CanonicalEntity, error)
	TouchEntity(ctx context.Context, id int64, seenAt time.Time) (*model.CanonicalEntity, error)
	SelectEntitiesByType(ctx context.Context, entityType model.EntityType, limit int) ([]*model.CanonicalEntity, error)
	SelectEntitiesBySearch(ctx context.Context, searchTerm string, entityType *model.EntityType, limit int) ([]*model.CanonicalEntity, error)
	UpdateEntityMetadata(ctx context.Context, id int64, metadata model.Metadata) (*model.CanonicalEntity, error)
	DeleteEntity(ctx context.Context, id int64) error
	MergeEntities(ctx context.Context, survivorID int64, loserID int64) (*model.CanonicalEntity, error)
}

// EntitiesDBHandler handles canonical entity database operations
type EntitiesDBHandler struct {
	db *helper.Database
	q  helper.Querier
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
		q:  db.Instance,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'canonical_entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates the token and trigram indexes used for candidate lookup.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		return helper.NewError("init entities", err)
	}

	h.db.Logger.Info("Checked/created table canonical_entities")

	return nil
}

// WithTx returns a copy of the handler that runs its queries inside tx
func (h *EntitiesDBHandler) WithTx(tx *sql.Tx) *EntitiesDBHandler {
	return &EntitiesDBHandler{db: h.db, q: tx}
}

// InsertEntity inserts a new canonical entity.
// FirstSeenAt is used for both first and last seen.
func (h *EntitiesDBHandler) InsertEntity(ctx context.Context, entity *model.CanonicalEntity) error {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_entity($1, $2, $3, $4, $5)`,
		entity.CanonicalName,
		pq.Array(entity.NameTokens),
		string(entity.EntityType),
		entity.FirstSeenAt,
		entity.Metadata,
	)

	inserted, err := scanEntity(row)
	if err != nil {
		return wrapError("insert entity", err)
	}
	*entity = *inserted

	return nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(ctx context.Context, id int64) (*model.CanonicalEntity, error) {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM select_entity($1)`,
		id,
	)

	entity, err := scanEntity(row)
	if err != nil {
		return nil, wrapError("select entity", err)
	}

	return entity, nil
}

// SelectEntityByRID retrieves an entity by its public RID
func (h *EntitiesDBHandler) SelectEntityByRID(ctx context.Context, rid uuid.UUID) (*model.CanonicalEntity, error) {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM select_entity_by_rid($1)`,
		rid,
	)

	entity, err := scanEntity(row)
	if err != nil {
		return nil, wrapError("select entity by rid", err)
	}

	return entity, nil
}

// SelectCandidates returns same-type entities that share a name token with,
// or are trigram-similar to, the normalized name.
func (h *EntitiesDBHandler) SelectCandidates(ctx context.Context, entityType model.EntityType, name string, tokens []string, limit int) ([]*model.CanonicalEntity, error) {
	rows, err := h.q.QueryContext(
		ctx,
		`SELECT * FROM select_entity_candidates($1, $2, $3, $4)`,
		string(entityType),
		name,
		pq.Array(tokens),
		nullableLimit(limit),
	)
	if err != nil {
		return nil, wrapError("query entity candidates", err)
	}

	return scanEntities(rows)
}

// TouchEntity moves last_seen_at forward (and first_seen_at backward) to include seenAt
func (h *EntitiesDBHandler) TouchEntity(ctx context.Context, id int64, seenAt time.Time) (*model.CanonicalEntity, error) {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM touch_entity($1, $2)`,
		id,
		seenAt,
	)

	entity, err := scanEntity(row)
	if err != nil {
		return nil, wrapError("touch entity", err)
	}

	return entity, nil
}

// SelectEntitiesByType retrieves entities by type, most mentioned first.
// A limit of 0 returns all entities of the type.
func (h *EntitiesDBHandler) SelectEntitiesByType(ctx context.Context, entityType model.EntityType, limit int) ([]*model.CanonicalEntity, error) {
	rows, err := h.q.QueryContext(
		ctx,
		`SELECT * FROM select_entities_by_type($1, $2)`,
		string(entityType),
		nullableLimit(limit),
	)
	if err != nil {
		return nil, wrapError("query entities by type", err)
	}

	return scanEntities(rows)
}

// SelectEntitiesBySearch searches entities by name pattern and trigram similarity
func (h *EntitiesDBHandler) SelectEntitiesBySearch(ctx context.Context, searchTerm string, entityType *model.EntityType, limit int) ([]*model.CanonicalEntity, error) {
	var typeFilter *string
	if entityType != nil {
		s := string(*entityType)
		typeFilter = &s
	}

	rows, err := h.q.QueryContext(
		ctx,
		`SELECT * FROM search_entities($1, $2, $3)`,
		searchTerm,
		typeFilter,
		nullableLimit(limit),
	)
	if err != nil {
		return nil, wrapError("search entities", err)
	}

	return scanEntities(rows)
}

// UpdateEntityMetadata merges metadata into the entity's metadata
func (h *EntitiesDBHandler) UpdateEntityMetadata(ctx context.Context, id int64, metadata model.Metadata) (*model.CanonicalEntity, error) {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM update_entity_metadata($1, $2)`,
		id,
		metadata,
	)

	entity, err := scanEntity(row)
	if err != nil {
		return nil, wrapError("update entity metadata", err)
	}

	return entity, nil
}

// DeleteEntity deletes an entity by ID together with its mentions and relationships
func (h *EntitiesDBHandler) DeleteEntity(ctx context.Context, id int64) error {
	var deleted int
	err := h.q.QueryRowContext(
		ctx,
		`SELECT delete_entity($1)`,
		id,
	).Scan(&deleted)
	if err != nil {
		return wrapError("delete entity", err)
	}
	if deleted == 0 {
		return helper.NewError("delete entity", model.ErrNotFound)
	}
	return nil
}

// MergeEntities folds the loser into the survivor in a single statement and returns the survivor
func (h *EntitiesDBHandler) MergeEntities(ctx context.Context, survivorID int64, loserID int64) (*model.CanonicalEntity, error) {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM merge_entities($1, $2)`,
		survivorID,
		loserID,
	)

	entity, err := scanEntity(row)
	if err != nil {
		return nil, wrapError("merge entities", err)
	}

	return entity, nil
}

func scanEntity(row scanner) (*model.CanonicalEntity, error) {
	entity := &model.CanonicalEntity{}
	var entityType string

	err := row.Scan(
		&entity.ID,
		&entity.RID,
		&entity.CanonicalName,
		pq.Array(&entity.NameTokens),
		&entityType,
		&entity.FirstSeenAt,
		&entity.LastSeenAt,
		&entity.MentionCount,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entity.EntityType = model.EntityType(entityType)
	entity.FirstSeenAt = entity.FirstSeenAt.UTC()
	entity.LastSeenAt = entity.LastSeenAt.UTC()

	return entity, nil
}

func scanEntities(rows *sql.Rows) ([]*model.CanonicalEntity, error) {
	defer rows.Close()

	entities := []*model.CanonicalEntity{}
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, wrapError("scan entity", err)
		}
		entities = append(entities, entity)
	}

	err := rows.Err()
	if err != nil {
		return nil, wrapError("rows error", err)
	}

	return entities, nil
}

// nullableLimit maps a non-positive limit to SQL NULL, which means no limit
func nullableLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
