package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/siherrmann/newsgraph/database/memory"
	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	text := "Tim Cook praised the new iPhone. Analysts were unimpressed."
	mention := model.RawMention{Text: "Tim Cook", Label: model.EntityTypePerson, StartOffset: 0, EndOffset: 8}

	setup := func(t *testing.T) (*memory.Store, *model.CanonicalEntity) {
		store := memory.NewStore()
		require.NoError(t, store.UpsertArticle(ctx, &model.Article{ID: 7, Title: "iPhone"}))
		entity := &model.CanonicalEntity{CanonicalName: "tim cook", NameTokens: []string{"tim", "cook"}, EntityType: model.EntityTypePerson, FirstSeenAt: now}
		require.NoError(t, store.InsertEntity(ctx, entity))
		return store, entity
	}

	t.Run("Recording twice stores two rows", func(t *testing.T) {
		store, entity := setup(t)
		recorder := NewRecorder(nil, nil)

		first, err := recorder.Record(ctx, store, mention, entity, 7, "Tim Cook praised the new iPhone.", nil, now)
		require.NoError(t, err)
		second, err := recorder.Record(ctx, store, mention, entity, 7, "Tim Cook praised the new iPhone.", nil, now)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		mentions, err := store.SelectMentionsByArticle(ctx, 7)
		require.NoError(t, err)
		assert.Len(t, mentions, 2, "Expected no deduplication of mention contexts")

		stored, err := store.SelectEntity(ctx, entity.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.MentionCount)
	})

	t.Run("Context uses the scorer on the sentence", func(t *testing.T) {
		var scored string
		recorder := NewRecorder(SentimentFunc(func(s string) (float64, error) {
			scored = s
			return 0.75, nil
		}), nil)

		sentence, sentiment := recorder.Context(text, mention)
		assert.Equal(t, "Tim Cook praised the new iPhone.", sentence)
		assert.Equal(t, sentence, scored)
		require.NotNil(t, sentiment)
		assert.Equal(t, 0.75, *sentiment)
	})

	t.Run("Sentiment is nil without scorer or on failure", func(t *testing.T) {
		_, sentiment := NewRecorder(nil, nil).Context(text, mention)
		assert.Nil(t, sentiment)

		failing := NewRecorder(SentimentFunc(func(string) (float64, error) {
			return 0, errors.New("model unavailable")
		}), nil)
		_, sentiment = failing.Context(text, mention)
		assert.Nil(t, sentiment)
	})

	t.Run("Scores outside the range are clamped and recorded", func(t *testing.T) {
		store, entity := setup(t)
		cases := map[float64]float64{1.0000001: 1, -1.2: -1, 0.3: 0.3}
		for raw, expected := range cases {
			recorder := NewRecorder(SentimentFunc(func(string) (float64, error) { return raw, nil }), nil)
			sentence, sentiment := recorder.Context(text, mention)
			require.NotNil(t, sentiment)
			assert.Equal(t, expected, *sentiment, "Expected %v to be clamped to %v", raw, expected)

			_, err := recorder.Record(ctx, store, mention, entity, 7, sentence, sentiment, now)
			assert.NoError(t, err)
		}

		nan := NewRecorder(SentimentFunc(func(string) (float64, error) { return math.NaN(), nil }), nil)
		assert.Nil(t, nan.Sentiment("Tim Cook praised the new iPhone."))
	})

	t.Run("Out of range sentiment is rejected", func(t *testing.T) {
		store, entity := setup(t)
		bad := 1.5
		_, err := NewRecorder(nil, nil).Record(ctx, store, mention, entity, 7, "", &bad, now)
		assert.Equal(t, model.CategoryValidation, model.Categorize(err))
	})

	t.Run("Nil entity is rejected", func(t *testing.T) {
		store, _ := setup(t)
		_, err := NewRecorder(nil, nil).Record(ctx, store, mention, nil, 7, "", nil, now)
		assert.Equal(t, model.CategoryValidation, model.Categorize(err))
	})
}

func TestPolarity(t *testing.T) {
	t.Run("Both classes", func(t *testing.T) {
		assert.InDelta(t, 0.6, polarity(map[string]float64{"POSITIVE": 0.8, "NEGATIVE": 0.2}), 1e-9)
	})

	t.Run("Only the top class", func(t *testing.T) {
		assert.InDelta(t, -0.8, polarity(map[string]float64{"NEGATIVE": 0.9}), 1e-9)
		assert.InDelta(t, 0.4, polarity(map[string]float64{"POSITIVE": 0.7}), 1e-9)
	})

	t.Run("Unknown labels are neutral", func(t *testing.T) {
		assert.Equal(t, 0.0, polarity(map[string]float64{"LABEL_0": 1}))
	})
}
