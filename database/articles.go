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

// ArticlesDBHandlerFunctions defines the interface for Articles database operations.
type ArticlesDBHandlerFunctions interface {
	UpsertArticle(ctx context.Context, article *model.Article) error
	SelectArticle(ctx context.Context, id int64) (*model.Article, error)
	MarkArticleProcessed(ctx context.Context, id int64, processedAt time.Time) error
	SelectUnprocessedArticles(ctx context.Context, limit int) ([]*model.Article, error)
}

// ArticlesDBHandler handles article-related database operations.
// Only article metadata and the processed marker are stored, never the content.
type ArticlesDBHandler struct {
	db *helper.Database
	q  helper.Querier
}

// NewArticlesDBHandler creates a new articles database handler.
// It loads the article SQL functions and creates the table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewArticlesDBHandler(db *helper.Database, force bool) (*ArticlesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	articlesDbHandler := &ArticlesDBHandler{
		db: db,
		q:  db.Instance,
	}

	err := loadSql.LoadArticlesSql(articlesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load articles sql", err)
	}

	err = articlesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ArticlesDBHandler")

	return articlesDbHandler, nil
}

// CreateTable creates the 'articles' table in the database.
// If the table already exists, it does not create it again.
func (h *ArticlesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_articles();`)
	if err != nil {
		return helper.NewError("init articles", err)
	}

	h.db.Logger.Info("Checked/created table articles")

	return nil
}

// WithTx returns a copy of the handler that runs its queries inside tx
func (h *ArticlesDBHandler) WithTx(tx *sql.Tx) *ArticlesDBHandler {
	return &ArticlesDBHandler{db: h.db, q: tx}
}

// UpsertArticle inserts the article or refreshes its metadata.
// The returned processed marker tells the caller whether the article was handled before.
func (h *ArticlesDBHandler) UpsertArticle(ctx context.Context, article *model.Article) error {
	var publishedAt *time.Time
	if !article.PublishedAt.IsZero() {
		publishedAt = &article.PublishedAt
	}

	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_article($1, $2, $3, $4, $5, $6)`,
		article.ID,
		article.Title,
		article.URL,
		article.Source,
		publishedAt,
		article.Metadata,
	)

	stored, err := scanArticle(row)
	if err != nil {
		return wrapError("upsert article", err)
	}

	content := article.Content
	*article = *stored
	article.Content = content

	return nil
}

// SelectArticle retrieves an article by ID
func (h *ArticlesDBHandler) SelectArticle(ctx context.Context, id int64) (*model.Article, error) {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM select_article($1)`,
		id,
	)

	article, err := scanArticle(row)
	if err != nil {
		return nil, wrapError("select article", err)
	}

	return article, nil
}

// MarkArticleProcessed sets the processed marker of an article
func (h *ArticlesDBHandler) MarkArticleProcessed(ctx context.Context, id int64, processedAt time.Time) error {
	row := h.q.QueryRowContext(
		ctx,
		`SELECT * FROM mark_article_processed($1, $2)`,
		id,
		processedAt,
	)

	_, err := scanArticle(row)
	if err != nil {
		return wrapError("mark article processed", err)
	}

	return nil
}

// SelectUnprocessedArticles retrieves the oldest articles without a processed marker
func (h *ArticlesDBHandler) SelectUnprocessedArticles(ctx context.Context, limit int) ([]*model.Article, error) {
	rows, err := h.q.QueryContext(
		ctx,
		`SELECT * FROM select_unprocessed_articles($1)`,
		limit,
	)
	if err != nil {
		return nil, wrapError("query unprocessed articles", err)
	}
	defer rows.Close()

	articles := []*model.Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, wrapError("scan article", err)
		}
		articles = append(articles, article)
	}

	err = rows.Err()
	if err != nil {
		return nil, wrapError("rows error", err)
	}

	return articles, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (*model.Article, error) {
	article := &model.Article{}
	var publishedAt sql.NullTime
	var processedAt sql.NullTime

	err := row.Scan(
		&article.ID,
		&article.Title,
		&article.URL,
		&article.Source,
		&publishedAt,
		&processedAt,
		&article.Metadata,
		&article.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if publishedAt.Valid {
		article.PublishedAt = publishedAt.Time.UTC()
	}
	if processedAt.Valid {
		t := processedAt.Time.UTC()
		article.ProcessedAt = &t
	}

	return article, nil
}
