package database

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
	loadSql "github.com/siherrmann/newsgraph/sql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

func initDB(t *testing.T) *helper.Database {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")
	database := helper.NewTestDatabase(dbConfig)
	t.Cleanup(func() { database.Close() })

	err = loadSql.Init(database.Instance)
	require.NoError(t, err)

	return database
}

// testHandlers creates all handlers in dependency order
type testHandlers struct {
	articles      *ArticlesDBHandler
	entities      *EntitiesDBHandler
	mentions      *MentionsDBHandler
	relationships *RelationshipsDBHandler
}

func initHandlers(t *testing.T, database *helper.Database) *testHandlers {
	articles, err := NewArticlesDBHandler(database, true)
	require.NoError(t, err, "Expected NewArticlesDBHandler to not return an error")
	entities, err := NewEntitiesDBHandler(database, true)
	require.NoError(t, err, "Expected NewEntitiesDBHandler to not return an error")
	mentions, err := NewMentionsDBHandler(database, true)
	require.NoError(t, err, "Expected NewMentionsDBHandler to not return an error")
	relationships, err := NewRelationshipsDBHandler(database, true)
	require.NoError(t, err, "Expected NewRelationshipsDBHandler to not return an error")

	return &testHandlers{
		articles:      articles,
		entities:      entities,
		mentions:      mentions,
		relationships: relationships,
	}
}

var articleSeq int64 = 1000

func insertTestArticle(t *testing.T, h *testHandlers, publishedAt time.Time) *model.Article {
	articleSeq++
	article := &model.Article{
		ID:          articleSeq,
		Title:       "Test article",
		URL:         "https://news.example.com/a",
		Source:      "example",
		PublishedAt: publishedAt,
	}
	err := h.articles.UpsertArticle(context.Background(), article)
	require.NoError(t, err, "Expected UpsertArticle to not return an error")
	return article
}

func insertTestEntity(t *testing.T, h *testHandlers, name string, entityType model.EntityType, seenAt time.Time) *model.CanonicalEntity {
	entity := &model.CanonicalEntity{
		CanonicalName: name,
		NameTokens:    []string{name},
		EntityType:    entityType,
		FirstSeenAt:   seenAt,
	}
	err := h.entities.InsertEntity(context.Background(), entity)
	require.NoError(t, err, "Expected InsertEntity to not return an error")
	return entity
}
