package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/siherrmann/newsgraph/core/pipeline"
	"github.com/siherrmann/newsgraph/core/relation"
	"github.com/siherrmann/newsgraph/core/resolve"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
	"golang.org/x/sync/errgroup"
)

var errAlreadyProcessed = errors.New("article already processed")

// ArticleStore is what the processor needs from the article storage
type ArticleStore interface {
	UpsertArticle(ctx context.Context, article *model.Article) error
	SelectArticle(ctx context.Context, id int64) (*model.Article, error)
	MarkArticleProcessed(ctx context.Context, id int64, processedAt time.Time) error
}

// Stores are the transaction bound stores handed to one unit of work
type Stores struct {
	Articles      ArticleStore
	Entities      resolve.Store
	Mentions      pipeline.MentionStore
	Relationships relation.Store
}

// TxRunner runs fn in one transaction. The transaction commits only if fn returns nil
// and ctx is still live.
type TxRunner func(ctx context.Context, fn func(stores Stores) error) error

// Processor turns articles into canonical entities, mention contexts and relationships
type Processor struct {
	runTx      TxRunner
	articles   ArticleStore
	extractor  *pipeline.Extractor
	resolver   *resolve.Resolver
	recorder   *pipeline.Recorder
	inferencer *relation.Inferencer
	config     model.PipelineConfig
	now        func() time.Time
	log        *slog.Logger
}

// NewProcessor creates a processor.
// articles is used outside of transactions to skip already processed articles early.
// A nil scorer records mentions without sentiment.
func NewProcessor(runTx TxRunner, articles ArticleStore, ner pipeline.Model, scorer pipeline.SentimentScorer, config model.PipelineConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		runTx:      runTx,
		articles:   articles,
		extractor:  pipeline.NewExtractor(ner, config),
		resolver:   resolve.NewResolver(config, logger),
		recorder:   pipeline.NewRecorder(scorer, logger),
		inferencer: relation.NewInferencer(logger),
		config:     config,
		now:        time.Now,
		log:        logger,
	}
}

// SetClock replaces the clock used for articles without a publish time and processed markers
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

// prepared is a mention with the context computed before the transaction starts
type prepared struct {
	mention   model.RawMention
	sentence  string
	sentiment *float64
}

// ProcessArticle runs one article through extraction, resolution, recording and inference.
// All writes happen in one transaction, so a failed article leaves nothing behind.
// Transient persistence errors are retried with exponential backoff.
func (p *Processor) ProcessArticle(ctx context.Context, article *model.Article) model.ArticleResult {
	return p.processArticle(ctx, article, p.log)
}

func (p *Processor) processArticle(ctx context.Context, article *model.Article, log *slog.Logger) model.ArticleResult {
	if article == nil {
		return failed(model.ArticleResult{}, &model.ValidationError{Field: "article", Message: "article is nil"})
	}
	result := model.ArticleResult{ArticleID: article.ID}
	log = log.With(slog.Int64("article_id", article.ID))

	if article.ID <= 0 {
		return failed(result, &model.ValidationError{Field: "id", Message: fmt.Sprintf("must be positive, got %d", article.ID)})
	}

	existing, err := p.articles.SelectArticle(ctx, article.ID)
	if err == nil && existing.ProcessedAt != nil {
		log.Info("Skipped processed article")
		result.Status = model.ArticleStatusSkipped
		return result
	}
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		log.Warn("Article lookup failed, checking inside the transaction", slog.String("error", err.Error()))
	}

	text := article.Text()
	mentions, err := p.extractor.Extract(text)
	if err != nil {
		log.Error("Extraction failed", slog.String("error", err.Error()))
		return failed(result, err)
	}
	work := p.prepare(text, mentions)
	observedAt := article.ObservedAt(p.now())

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.RetryInitialInterval
	b.MaxElapsedTime = 0
	retry := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(0, p.config.MaxRetries))), ctx)

	err = backoff.Retry(func() error {
		result.Attempts++
		attempt, err := p.write(ctx, article, work, observedAt, log)
		if err != nil {
			if model.IsTransient(err) {
				log.Warn("Transient persistence error, retrying", slog.Int("attempt", result.Attempts), slog.String("error", err.Error()))
				return err
			}
			return backoff.Permanent(err)
		}
		attempt.ArticleID, attempt.Attempts = result.ArticleID, result.Attempts
		result = attempt
		return nil
	}, retry)

	switch {
	case errors.Is(err, errAlreadyProcessed):
		log.Info("Skipped processed article")
		result.Status = model.ArticleStatusSkipped
		return result
	case err != nil:
		log.Error("Processing article failed", slog.Int("attempts", result.Attempts), slog.String("error", err.Error()))
		return failed(result, err)
	}

	result.Status = model.ArticleStatusProcessed
	log.Info("Processed article",
		slog.Int("mentions", result.MentionsRecorded),
		slog.Int("entities", result.EntitiesProcessed),
		slog.Int("relationships", result.RelationshipsUpdated),
		slog.Int("skipped_mentions", result.SkippedMentions),
	)
	return result
}

// prepare computes sentence contexts and sentiment outside of the transaction.
// The text is split into sentences once and each distinct sentence is scored once.
func (p *Processor) prepare(text string, mentions []model.RawMention) []prepared {
	index := pipeline.NewSentenceIndex(text)
	scores := map[string]*float64{}
	work := make([]prepared, 0, len(mentions))
	for _, m := range mentions {
		sentence := index.Context(m.StartOffset, m.EndOffset)
		sentiment, ok := scores[sentence]
		if !ok {
			sentiment = p.recorder.Sentiment(sentence)
			scores[sentence] = sentiment
		}
		work = append(work, prepared{mention: m, sentence: sentence, sentiment: sentiment})
	}
	return work
}

// write is one transactional attempt at storing the results of an article
func (p *Processor) write(ctx context.Context, article *model.Article, work []prepared, observedAt time.Time, log *slog.Logger) (model.ArticleResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.DBTimeout)
	defer cancel()

	var result model.ArticleResult
	err := p.runTx(ctx, func(stores Stores) error {
		result = model.ArticleResult{}

		stored := *article
		err := stores.Articles.UpsertArticle(ctx, &stored)
		if err != nil {
			return helper.NewError("upsert article", err)
		}
		if stored.ProcessedAt != nil {
			return errAlreadyProcessed
		}

		entities := []*model.CanonicalEntity{}
		seen := map[int64]bool{}
		for _, w := range work {
			w.mention.SourceArticleID = article.ID

			entity, err := p.resolver.Resolve(ctx, stores.Entities, w.mention, observedAt)
			if model.IsTooAmbiguous(err) {
				log.Warn("Skipped mention", slog.String("mention", w.mention.Text), slog.String("reason", string(model.ReasonTooAmbiguous)))
				result.SkippedMentions++
				continue
			}
			if err != nil {
				return helper.NewError("resolve mention", err)
			}

			_, err = p.recorder.Record(ctx, stores.Mentions, w.mention, entity, article.ID, w.sentence, w.sentiment, observedAt)
			if err != nil {
				return helper.NewError("record mention", err)
			}
			result.MentionsRecorded++

			if !seen[entity.ID] {
				seen[entity.ID] = true
				entities = append(entities, entity)
			}
		}
		result.EntitiesProcessed = len(entities)

		relationships, err := p.inferencer.Infer(ctx, stores.Relationships, entities, observedAt)
		if err != nil {
			return helper.NewError("infer relationships", err)
		}
		result.RelationshipsUpdated = len(relationships)

		err = stores.Articles.MarkArticleProcessed(ctx, article.ID, p.now())
		if err != nil {
			return helper.NewError("mark article processed", err)
		}
		return nil
	})
	return result, err
}

// ProcessBatch processes articles on a bounded worker pool.
// A failed article never stops the batch; results keep the input order.
func (p *Processor) ProcessBatch(ctx context.Context, articles []*model.Article) model.BatchResult {
	batch := model.BatchResult{
		BatchID: uuid.New(),
		Results: make([]model.ArticleResult, len(articles)),
	}
	log := p.log.With(slog.String("batch_id", batch.BatchID.String()))
	log.Info("Processing batch", slog.Int("articles", len(articles)))

	g := errgroup.Group{}
	g.SetLimit(max(1, p.config.Workers))
	for i, article := range articles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				id := int64(0)
				if article != nil {
					id = article.ID
				}
				batch.Results[i] = failed(model.ArticleResult{ArticleID: id}, err)
				return nil
			}
			batch.Results[i] = p.processArticle(ctx, article, log)
			return nil
		})
	}
	_ = g.Wait()

	log.Info("Processed batch",
		slog.Int("processed", batch.Count(model.ArticleStatusProcessed)),
		slog.Int("skipped", batch.Count(model.ArticleStatusSkipped)),
		slog.Int("failed", batch.Count(model.ArticleStatusFailed)),
	)
	return batch
}

func failed(result model.ArticleResult, err error) model.ArticleResult {
	result.Status = model.ArticleStatusFailed
	result.EntitiesProcessed = 0
	result.MentionsRecorded = 0
	result.RelationshipsUpdated = 0
	result.SkippedMentions = 0
	result.Errors = append(result.Errors, err.Error())
	result.ErrorCategory = model.Categorize(err)
	return result
}
