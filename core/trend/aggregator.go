package trend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

// Store is what the aggregator reads mention history from
type Store interface {
	SelectEntity(ctx context.Context, id int64) (*model.CanonicalEntity, error)
	SelectMentionsByEntity(ctx context.Context, entityID int64, dateRange *model.DateRange) ([]*model.EntityMentionContext, error)
}

// Aggregator computes mention trends from recorded mention contexts
type Aggregator struct {
	store       Store
	maxLookback int
	now         func() time.Time
	log         *slog.Logger
}

// NewAggregator creates an aggregator limited to the max lookback of config.
// A nil now uses the wall clock.
func NewAggregator(store Store, config model.PipelineConfig, now func() time.Time, logger *slog.Logger) *Aggregator {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		store:       store,
		maxLookback: config.MaxLookback,
		now:         now,
		log:         logger,
	}
}

// ComputeTrend returns lookbackPeriods calendar buckets for the entity, oldest first.
// The last bucket contains the current time. Buckets without mentions are kept
// with a zero count and a nil sentiment, and unscored mentions do not count
// towards the sentiment mean.
func (a *Aggregator) ComputeTrend(ctx context.Context, entityID int64, period model.Period, lookbackPeriods int) ([]model.TrendPoint, error) {
	if _, err := model.ParsePeriod(string(period)); err != nil {
		return nil, err
	}
	if lookbackPeriods <= 0 {
		return nil, &model.ValidationError{Field: "lookback_periods", Message: fmt.Sprintf("must be positive, got %d", lookbackPeriods)}
	}
	if lookbackPeriods > a.maxLookback {
		return nil, &model.ValidationError{Field: "lookback_periods", Message: fmt.Sprintf("must be at most %d, got %d", a.maxLookback, lookbackPeriods)}
	}

	_, err := a.store.SelectEntity(ctx, entityID)
	if err != nil {
		return nil, helper.NewError("select entity", err)
	}

	now := a.now().UTC()
	oldest := AddBuckets(BucketStart(now, period), period, -(lookbackPeriods - 1))

	mentions, err := a.store.SelectMentionsByEntity(ctx, entityID, &model.DateRange{From: oldest, To: now})
	if err != nil {
		return nil, helper.NewError("select mentions by entity", err)
	}

	points := make([]model.TrendPoint, lookbackPeriods)
	sums := make([]float64, lookbackPeriods)
	scored := make([]int, lookbackPeriods)
	for i := range points {
		points[i] = model.TrendPoint{
			CanonicalEntityID: entityID,
			PeriodStart:       AddBuckets(oldest, period, i),
			PeriodEnd:         AddBuckets(oldest, period, i+1),
		}
	}

	for _, mention := range mentions {
		i := bucketIndex(points, mention.MentionedAt.UTC())
		if i < 0 {
			continue
		}
		points[i].MentionCount++
		if mention.SentimentScore != nil {
			sums[i] += *mention.SentimentScore
			scored[i]++
		}
	}

	for i := range points {
		if scored[i] > 0 {
			avg := sums[i] / float64(scored[i])
			points[i].AvgSentiment = &avg
		}
	}

	a.log.Debug("Computed trend", slog.Int64("entity_id", entityID), slog.String("period", string(period)), slog.Int("buckets", lookbackPeriods), slog.Int("mentions", len(mentions)))

	return points, nil
}

// bucketIndex finds the half-open bucket [PeriodStart, PeriodEnd) containing t
func bucketIndex(points []model.TrendPoint, t time.Time) int {
	for i, p := range points {
		if !t.Before(p.PeriodStart) && t.Before(p.PeriodEnd) {
			return i
		}
	}
	return -1
}
