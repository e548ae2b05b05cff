package newsgraph

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/siherrmann/newsgraph/core/graph"
	"github.com/siherrmann/newsgraph/core/pipeline"
	"github.com/siherrmann/newsgraph/core/processor"
	"github.com/siherrmann/newsgraph/core/resolve"
	"github.com/siherrmann/newsgraph/core/trend"
	"github.com/siherrmann/newsgraph/database"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
	loadSql "github.com/siherrmann/newsgraph/sql"
)

// Newsgraph provides a unified interface to the entity pipeline and its queries
type Newsgraph struct {
	DB            *helper.Database
	Articles      *database.ArticlesDBHandler
	Entities      *database.EntitiesDBHandler
	Mentions      *database.MentionsDBHandler
	Relationships *database.RelationshipsDBHandler
	Processor     *processor.Processor
	Aggregator    *trend.Aggregator
	Merger        *resolve.Merger
	Config        model.PipelineConfig
	// Models owned by UseDefaultModels
	owned []interface{ Close() error }
	// Logging
	log *slog.Logger
}

// NewNewsgraph creates a new Newsgraph instance with all handlers initialized.
// ner is used for extraction and may be replaced later with SetModels;
// with a nil ner every article fails with a model_unavailable extraction error.
// scorer is optional.
func NewNewsgraph(dbConfig *helper.DatabaseConfiguration, config model.PipelineConfig, ner pipeline.Model, scorer pipeline.SentimentScorer) (*Newsgraph, error) {
	err := config.Validate()
	if err != nil {
		return nil, helper.NewError("pipeline configuration validation", err)
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db, err := helper.NewDatabase("newsgraph", dbConfig, logger)
	if err != nil {
		return nil, helper.NewError("connect database", err)
	}
	err = loadSql.Init(db.Instance)
	if err != nil {
		db.Close()
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (articles and entities before mentions)
	// force=false to not reload if functions already exist
	articles, err := database.NewArticlesDBHandler(db, false)
	if err != nil {
		db.Close()
		return nil, helper.NewError("create articles handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		db.Close()
		return nil, helper.NewError("create entities handler", err)
	}

	mentions, err := database.NewMentionsDBHandler(db, false)
	if err != nil {
		db.Close()
		return nil, helper.NewError("create mentions handler", err)
	}

	relationships, err := database.NewRelationshipsDBHandler(db, false)
	if err != nil {
		db.Close()
		return nil, helper.NewError("create relationships handler", err)
	}

	n := &Newsgraph{
		DB:            db,
		Articles:      articles,
		Entities:      entities,
		Mentions:      mentions,
		Relationships: relationships,
		Aggregator:    trend.NewAggregator(entityMentions{entities, mentions}, config, nil, logger),
		Merger:        resolve.NewMerger(entities, config, logger),
		Config:        config,
		log:           logger,
	}
	n.SetModels(ner, scorer)

	return n, nil
}

// entityMentions joins the entity and mention handlers for trend queries
type entityMentions struct {
	*database.EntitiesDBHandler
	*database.MentionsDBHandler
}

// Close closes the database connection and the models created by UseDefaultModels
func (n *Newsgraph) Close() error {
	var errs []error
	for _, m := range n.owned {
		errs = append(errs, m.Close())
	}
	n.owned = nil
	if n.DB != nil {
		errs = append(errs, n.DB.Close())
	}
	return errors.Join(errs...)
}

// SetModels replaces the extraction model and sentiment scorer.
// The caller keeps ownership of both.
func (n *Newsgraph) SetModels(ner pipeline.Model, scorer pipeline.SentimentScorer) {
	n.Processor = processor.NewProcessor(n.runInTx, n.Articles, ner, scorer, n.Config, n.log)
}

// UseDefaultModels loads distilbert-NER and the SST-2 sentiment model.
// Both are released by Close.
func (n *Newsgraph) UseDefaultModels() error {
	ner, err := pipeline.NewNERModel()
	if err != nil {
		return helper.NewError("create default NER model", err)
	}
	scorer, err := pipeline.NewSentimentModel()
	if err != nil {
		ner.Close()
		return helper.NewError("create default sentiment model", err)
	}

	n.owned = append(n.owned, ner, scorer)
	n.SetModels(ner, scorer)
	return nil
}

// runInTx hands transaction bound handlers to fn
func (n *Newsgraph) runInTx(ctx context.Context, fn func(stores processor.Stores) error) error {
	return n.DB.RunInTx(ctx, func(tx *sql.Tx) error {
		return fn(processor.Stores{
			Articles:      n.Articles.WithTx(tx),
			Entities:      n.Entities.WithTx(tx),
			Mentions:      n.Mentions.WithTx(tx),
			Relationships: n.Relationships.WithTx(tx),
		})
	})
}

// ProcessArticle extracts, resolves and records the entities of one article
func (n *Newsgraph) ProcessArticle(ctx context.Context, article *model.Article) model.ArticleResult {
	return n.Processor.ProcessArticle(ctx, article)
}

// ProcessBatch processes articles concurrently, reporting every article separately
func (n *Newsgraph) ProcessBatch(ctx context.Context, articles []*model.Article) model.BatchResult {
	return n.Processor.ProcessBatch(ctx, articles)
}

// RegisterArticles stores article metadata ahead of processing
func (n *Newsgraph) RegisterArticles(ctx context.Context, articles []*model.Article) error {
	for _, article := range articles {
		err := n.Articles.UpsertArticle(ctx, article)
		if err != nil {
			return helper.NewError("register article", err)
		}
	}
	return nil
}

// PendingArticles lists registered articles that were not processed yet, oldest first
func (n *Newsgraph) PendingArticles(ctx context.Context, limit int) ([]*model.Article, error) {
	return n.Articles.SelectUnprocessedArticles(ctx, limit)
}

// GetCanonicalEntity returns the entity or an error wrapping model.ErrNotFound
func (n *Newsgraph) GetCanonicalEntity(ctx context.Context, id int64) (*model.CanonicalEntity, error) {
	return n.Entities.SelectEntity(ctx, id)
}

// GetCanonicalEntityByRID returns the entity with the public id rid
func (n *Newsgraph) GetCanonicalEntityByRID(ctx context.Context, rid uuid.UUID) (*model.CanonicalEntity, error) {
	return n.Entities.SelectEntityByRID(ctx, rid)
}

// AnnotateEntity merges metadata into the metadata of an entity
func (n *Newsgraph) AnnotateEntity(ctx context.Context, id int64, metadata model.Metadata) (*model.CanonicalEntity, error) {
	return n.Entities.UpdateEntityMetadata(ctx, id, metadata)
}

// DeleteEntity removes an entity together with its mention contexts and relationships
func (n *Newsgraph) DeleteEntity(ctx context.Context, id int64) error {
	return n.Entities.DeleteEntity(ctx, id)
}

// ArticleMentions returns the mention contexts recorded for one article
func (n *Newsgraph) ArticleMentions(ctx context.Context, articleID int64) ([]*model.EntityMentionContext, error) {
	return n.Mentions.SelectMentionsByArticle(ctx, articleID)
}

// ListMentions returns the mention contexts of an entity, optionally limited to a date range
func (n *Newsgraph) ListMentions(ctx context.Context, entityID int64, dateRange *model.DateRange) ([]*model.EntityMentionContext, error) {
	_, err := n.Entities.SelectEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return n.Mentions.SelectMentionsByEntity(ctx, entityID, dateRange)
}

// ListRelationships returns all relationships of an entity, strongest first
func (n *Newsgraph) ListRelationships(ctx context.Context, entityID int64) ([]*model.EntityRelationship, error) {
	_, err := n.Entities.SelectEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return n.Relationships.SelectRelationshipsByEntity(ctx, entityID)
}

// GetTrend returns lookback calendar buckets of mention counts and sentiment, oldest first.
// An empty period or a zero lookback uses the configured default.
func (n *Newsgraph) GetTrend(ctx context.Context, entityID int64, period model.Period, lookback int) ([]model.TrendPoint, error) {
	if period == "" {
		period = n.Config.DefaultPeriod
	}
	if lookback == 0 {
		lookback = n.Config.DefaultLookback
	}
	return n.Aggregator.ComputeTrend(ctx, entityID, period, lookback)
}

// SearchEntities finds entities by name, optionally restricted to one type
func (n *Newsgraph) SearchEntities(ctx context.Context, term string, entityType *model.EntityType, limit int) ([]*model.CanonicalEntity, error) {
	return n.Entities.SelectEntitiesBySearch(ctx, term, entityType, limit)
}

// RelatedEntities walks co-occurrence relationships up to maxHops away from an entity
func (n *Newsgraph) RelatedEntities(ctx context.Context, entityID int64, maxHops int, minObservations int) ([]*graph.TraversalResult, error) {
	return graph.BFS(ctx, relationshipGraph{n.Entities, n.Relationships}, entityID, maxHops, minObservations)
}

// relationshipGraph joins the entity and relationship handlers for traversal
type relationshipGraph struct {
	*database.EntitiesDBHandler
	*database.RelationshipsDBHandler
}

// MergeDuplicates folds near-duplicate canonical entities of every type
func (n *Newsgraph) MergeDuplicates(ctx context.Context) (*resolve.MergeReport, error) {
	return n.Merger.Run(ctx)
}
