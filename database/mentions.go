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

// MentionsDBHandlerFunctions defines the interface for mention context database operations.
type MentionsDBHandlerFunctions interface {
	InsertMention(ctx context.Context, mention *model.EntityMentionContext) error
	SelectMentionsByEntity(ctx context.Context, entityID int64, dateRange *model.DateRange) ([]*model.EntityMentionContext, error)
	SelectMentionsByArticle(ctx context.Context, articleID int64) ([]*model.EntityMentionContext, error)
}

// MentionsDBHandler handles mention context database operations.
// Mention contexts are append-only; there is no update or delete.
type MentionsDBHandler struct {
	db *helper.Database
	q  helper.Querier
}

// NewMentionsDBHandler creates a new mentions database handler.
// The articles and canonical_entities tables have to exist already.
func NewMentionsDBHandler(db *helper.Database, force bool) (*MentionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	mentionsDbHandler := &MentionsDBHandler{
		db: db,
		q:  db.Instance,
	}

	err := loadSql.LoadMentionsSql(mentionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load mentions sql", err)
	}

	err = mentionsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized MentionsDBHandler")

	return mentionsDbHandler, nil
}

// CreateTable creates the 'entity_mention_contexts' table in the database.
// If the table already exists, it does not create it again.
func (h *MentionsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_mentions();`)
	if err != nil {
		return helper.NewError("init mentions", err)
	}

	h.db.Logger.Info("Checked/created table entity_mention_contexts")

	return nil
}

// WithTx returns a copy of the handler that runs its queries inside tx
func (h *MentionsDBHandler) WithTx(tx *sql.Tx) *MentionsDBHandler {
	return &MentionsDBHandler{db: h.db, q: tx}
}

// InsertMention appends one mention context and increments the entity's mention count.
// Inserting the same mention twice yields two rows.
func (h *MentionsDBHandler) InsertMention(ctx context.Context, mention *model.EntityMentionContext) error {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_mention($1, $2, $3, $4, $5, $6, $7, $8)`,
		mention.CanonicalEntityID,
		mention.ArticleID,
		mention.MentionText,
		mention.SentenceContext,
		mention.SentimentScore,
		mention.StartOffset,
		mention.EndOffset,
		mention.MentionedAt,
	)

	inserted, err := scanMention(row)
	if err != nil {
		return wrapError("insert mention", err)
	}
	*mention = *inserted

	return nil
}

// SelectMentionsByEntity retrieves the mentions of an entity ordered by mention time.
// A nil date range returns all mentions.
func (h *MentionsDBHandler) SelectMentionsByEntity(ctx context.Context, entityID int64, dateRange *model.DateRange) ([]*model.EntityMentionContext, error) {
	var from, to *time.Time
	if dateRange != nil {
		if !dateRange.From.IsZero() {
			from = &dateRange.From
		}
		if !dateRange.To.IsZero() {
			to = &dateRange.To
		}
	}

	rows, err := h.q.QueryContext(
		ctx,
		`SELECT * FROM select_mentions_by_entity($1, $2, $3)`,
		entityID,
		from,
		to,
	)
	if err != nil {
		return nil, wrapError("query mentions by entity", err)
	}

	return scanMentions(rows)
}

// SelectMentionsByArticle retrieves the mentions recorded for an article in text order
func (h *MentionsDBHandler) SelectMentionsByArticle(ctx context.Context, articleID int64) ([]*model.EntityMentionContext, error) {
	rows, err := h.q.QueryContext(
		ctx,
		`SELECT * FROM select_mentions_by_article($1)`,
		articleID,
	)
	if err != nil {
		return nil, wrapError("query mentions by article", err)
	}

	return scanMentions(rows)
}

func scanMention(row scanner) (*model.EntityMentionContext, error) {
	mention := &model.EntityMentionContext{}
	var sentiment sql.NullFloat64

	err := row.Scan(
		&mention.ID,
		&mention.CanonicalEntityID,
		&mention.ArticleID,
		&mention.MentionText,
		&mention.SentenceContext,
		&sentiment,
		&mention.StartOffset,
		&mention.EndOffset,
		&mention.MentionedAt,
		&mention.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sentiment.Valid {
		score := sentiment.Float64
		mention.SentimentScore = &score
	}
	mention.MentionedAt = mention.MentionedAt.UTC()

	return mention, nil
}

func scanMentions(rows *sql.Rows) ([]*model.EntityMentionContext, error) {
	defer rows.Close()

	mentions := []*model.EntityMentionContext{}
	for rows.Next() {
		mention, err := scanMention(rows)
		if err != nil {
			return nil, wrapError("scan mention", err)
		}
		mentions = append(mentions, mention)
	}

	err := rows.Err()
	if err != nil {
		return nil, wrapError("rows error", err)
	}

	return mentions, nil
}
