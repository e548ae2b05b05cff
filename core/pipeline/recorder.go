package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

// MentionStore is what the recorder writes mention contexts to
type MentionStore interface {
	InsertMention(ctx context.Context, mention *model.EntityMentionContext) error
}

// Recorder appends mention contexts for resolved mentions
type Recorder struct {
	scorer SentimentScorer
	log    *slog.Logger
}

// NewRecorder creates a recorder. A nil scorer records mentions without sentiment.
func NewRecorder(scorer SentimentScorer, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		scorer: scorer,
		log:    logger,
	}
}

// Context returns the sentence around mention in text and its sentiment.
// The sentiment is nil without a scorer or when scoring fails.
func (r *Recorder) Context(text string, mention model.RawMention) (string, *float64) {
	sentence := SentenceContext(text, mention.StartOffset, mention.EndOffset)
	return sentence, r.Sentiment(sentence)
}

// Sentiment scores sentence, returning nil without a scorer or on failure.
// Scores outside [-1, 1] are clamped.
func (r *Recorder) Sentiment(sentence string) *float64 {
	if r.scorer == nil || sentence == "" {
		return nil
	}
	score, err := r.scorer.Score(sentence)
	if err != nil {
		r.log.Warn("Sentiment scoring failed", slog.String("error", err.Error()))
		return nil
	}
	if math.IsNaN(score) {
		r.log.Warn("Sentiment scoring returned NaN")
		return nil
	}
	score = max(-1, min(1, score))
	return &score
}

// Record appends one mention context. Recording the same mention twice stores two rows.
func (r *Recorder) Record(ctx context.Context, store MentionStore, mention model.RawMention, entity *model.CanonicalEntity, articleID int64, sentenceContext string, sentiment *float64, mentionedAt time.Time) (*model.EntityMentionContext, error) {
	if entity == nil {
		return nil, &model.ValidationError{Field: "entity", Message: "entity is nil"}
	}
	if sentiment != nil && (*sentiment < -1 || *sentiment > 1) {
		return nil, &model.ValidationError{Field: "sentiment_score", Message: fmt.Sprintf("%f is outside [-1, 1]", *sentiment)}
	}

	mentionContext := &model.EntityMentionContext{
		CanonicalEntityID: entity.ID,
		ArticleID:         articleID,
		MentionText:       mention.Text,
		SentenceContext:   sentenceContext,
		SentimentScore:    sentiment,
		StartOffset:       mention.StartOffset,
		EndOffset:         mention.EndOffset,
		MentionedAt:       mentionedAt,
	}
	err := store.InsertMention(ctx, mentionContext)
	if err != nil {
		return nil, helper.NewError("insert mention", err)
	}

	return mentionContext, nil
}
