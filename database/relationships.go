package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
	loadSql "github.com/siherrmann/newsgraph/sql"
)

// RelationshipsDBHandlerFunctions defines the interface for relationship database operations.
type RelationshipsDBHandlerFunctions interface {
	UpsertRelationship(ctx context.Context, entityAID int64, entityBID int64, relationshipType model.RelationshipType, observedAt time.Time) (*model.EntityRelationship, error)
	SelectRelationship(ctx context.Context, entityAID int64, entityBID int64, relationshipType model.RelationshipType) (*model.EntityRelationship, error)
	SelectRelationshipsByEntity(ctx context.Context, entityID int64) ([]*model.EntityRelationship, error)
}

// RelationshipsDBHandler handles entity relationship database operations
type RelationshipsDBHandler struct {
	db *helper.Database
	q  helper.Querier
}

// NewRelationshipsDBHandler creates a new relationships database handler.
// The canonical_entities table has to exist already.
func NewRelationshipsDBHandler(db *helper.Database, force bool) (*RelationshipsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationshipsDbHandler := &RelationshipsDBHandler{
		db: db,
		q:  db.Instance,
	}

	err := loadSql.LoadRelationshipsSql(relationshipsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relationships sql", err)
	}

	err = relationshipsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationshipsDBHandler")

	return relationshipsDbHandler, nil
}

// CreateTable creates the 'entity_relationships' table in the database.
// If the table already exists, it does not create it again.
func (h *RelationshipsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relationships();`)
	if err != nil {
		return helper.NewError("init relationships", err)
	}

	h.db.Logger.Info("Checked/created table entity_relationships")

	return nil
}

// WithTx returns a copy of the handler that runs its queries inside tx
func (h *RelationshipsDBHandler) WithTx(tx *sql.Tx) *RelationshipsDBHandler {
	return &RelationshipsDBHandler{db: h.db, q: tx}
}

// UpsertRelationship records one co-observation of the pair.
// The pair order does not matter; the row is stored with the lower id first.
func (h *RelationshipsDBHandler) UpsertRelationship(ctx context.Context, entityAID int64, entityBID int64, relationshipType model.RelationshipType, observedAt time.Time) (*model.EntityRelationship, error) {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_relationship($1, $2, $3, $4)`,
		entityAID,
		entityBID,
		string(relationshipType),
		observedAt,
	)

	relationship, err := scanRelationship(row)
	if err != nil {
		return nil, wrapError("upsert relationship", err)
	}

	return relationship, nil
}

// SelectRelationship retrieves the relationship of a pair in either order
func (h *RelationshipsDBHandler) SelectRelationship(ctx context.Context, entityAID int64, entityBID int64, relationshipType model.RelationshipType) (*model.EntityRelationship, error) {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM select_relationship($1, $2, $3)`,
		entityAID,
		entityBID,
		string(relationshipType),
	)

	relationship, err := scanRelationship(row)
	if err != nil {
		return nil, wrapError("select relationship", err)
	}

	return relationship, nil
}

// SelectRelationshipsByEntity retrieves all relationships an entity takes part in,
// strongest first
func (h *RelationshipsDBHandler) SelectRelationshipsByEntity(ctx context.Context, entityID int64) ([]*model.EntityRelationship, error) {
	rows, err := h.q.QueryContext(
		ctx,
		`SELECT * FROM select_relationships_by_entity($1)`,
		entityID,
	)
	if err != nil {
		return nil, wrapError("query relationships by entity", err)
	}
	defer rows.Close()

	relationships := []*model.EntityRelationship{}
	for rows.Next() {
		relationship, err := scanRelationship(rows)
		if err != nil {
			return nil, wrapError("scan relationship", err)
		}
		relationships = append(relationships, relationship)
	}

	err = rows.Err()
	if err != nil {
		return nil, wrapError("rows error", err)
	}

	return relationships, nil
}

func scanRelationship(row scanner) (*model.EntityRelationship, error) {
	relationship := &model.EntityRelationship{}
	var relationshipType string

	err := row.Scan(
		&relationship.ID,
		&relationship.EntityAID,
		&relationship.EntityBID,
		&relationshipType,
		&relationship.Confidence,
		&relationship.FirstObservedAt,
		&relationship.LastObservedAt,
		&relationship.ObservationCount,
	)
	if err != nil {
		return nil, err
	}

	relationship.RelationshipType = model.RelationshipType(relationshipType)
	relationship.FirstObservedAt = relationship.FirstObservedAt.UTC()
	relationship.LastObservedAt = relationship.LastObservedAt.UTC()

	return relationship, nil
}
