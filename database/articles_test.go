package database

import (
	"context"
	"testing"
	"time"

	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticlesNewArticlesDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewArticlesDBHandler", func(t *testing.T) {
		articlesDbHandler, err := NewArticlesDBHandler(database, true)
		assert.NoError(t, err, "Expected NewArticlesDBHandler to not return an error")
		require.NotNil(t, articlesDbHandler, "Expected NewArticlesDBHandler to return a non-nil instance")
		require.NotNil(t, articlesDbHandler.db, "Expected NewArticlesDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewArticlesDBHandler with nil database", func(t *testing.T) {
		_, err := NewArticlesDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating ArticlesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestArticlesUpsertAndProcess(t *testing.T) {
	database := initDB(t)
	h := initHandlers(t, database)
	ctx := context.Background()

	publishedAt := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

	t.Run("Upsert new article keeps content in memory only", func(t *testing.T) {
		article := &model.Article{
			ID:          1,
			Title:       "Apple unveils new chip",
			Content:     "Tim Cook presented the chip in Cupertino.",
			URL:         "https://news.example.com/apple",
			Source:      "example",
			PublishedAt: publishedAt,
			Metadata:    model.Metadata{"feed": "tech"},
		}

		err := h.articles.UpsertArticle(ctx, article)
		require.NoError(t, err, "Expected UpsertArticle to not return an error")
		assert.Equal(t, int64(1), article.ID)
		assert.Equal(t, publishedAt, article.PublishedAt)
		assert.Nil(t, article.ProcessedAt, "Expected new article to be unprocessed")
		assert.Equal(t, "Tim Cook presented the chip in Cupertino.", article.Content)
		assert.Equal(t, "tech", article.Metadata["feed"])
	})

	t.Run("Upsert existing article merges metadata", func(t *testing.T) {
		article := &model.Article{ID: 1, Title: "Apple unveils new chip (updated)", Metadata: model.Metadata{"lang": "en"}}

		err := h.articles.UpsertArticle(ctx, article)
		require.NoError(t, err)
		assert.Equal(t, "Apple unveils new chip (updated)", article.Title)
		assert.Equal(t, publishedAt, article.PublishedAt, "Expected missing publish date to keep the stored one")
		assert.Equal(t, "tech", article.Metadata["feed"])
		assert.Equal(t, "en", article.Metadata["lang"])
	})

	t.Run("Unprocessed articles are listed", func(t *testing.T) {
		articles, err := h.articles.SelectUnprocessedArticles(ctx, 10)
		require.NoError(t, err)
		ids := []int64{}
		for _, a := range articles {
			ids = append(ids, a.ID)
		}
		assert.Contains(t, ids, int64(1))
	})

	t.Run("Mark article processed", func(t *testing.T) {
		processedAt := time.Now().UTC().Truncate(time.Microsecond)
		err := h.articles.MarkArticleProcessed(ctx, 1, processedAt)
		require.NoError(t, err)

		article, err := h.articles.SelectArticle(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, article.ProcessedAt)
		assert.True(t, processedAt.Equal(*article.ProcessedAt))

		articles, err := h.articles.SelectUnprocessedArticles(ctx, 10)
		require.NoError(t, err)
		for _, a := range articles {
			assert.NotEqual(t, int64(1), a.ID, "Expected processed article to not be listed")
		}
	})

	t.Run("Select missing article returns not found", func(t *testing.T) {
		_, err := h.articles.SelectArticle(ctx, 999999)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Mark missing article returns not found", func(t *testing.T) {
		err := h.articles.MarkArticleProcessed(ctx, 999999, time.Now())
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("Rolled back transaction leaves no article", func(t *testing.T) {
		tx, err := database.Instance.BeginTx(ctx, nil)
		require.NoError(t, err)

		err = h.articles.WithTx(tx).UpsertArticle(ctx, &model.Article{ID: 77, Title: "Draft"})
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		_, err = h.articles.SelectArticle(ctx, 77)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
