package database

import (
	"context"
	"testing"
	"time"

	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMentionsNewMentionsDBHandler(t *testing.T) {
	t.Run("Invalid call NewMentionsDBHandler with nil database", func(t *testing.T) {
		_, err := NewMentionsDBHandler(nil, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestMentionsInsertAndSelect(t *testing.T) {
	database := initDB(t)
	h := initHandlers(t, database)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2024, 7, d, 8, 0, 0, 0, time.UTC) }
	entity := insertTestEntity(t, h, "mention test person", model.EntityTypePerson, day(1))
	article := insertTestArticle(t, h, day(3))

	score := 0.4
	newMention := func(at time.Time, sentiment *float64) *model.EntityMentionContext {
		return &model.EntityMentionContext{
			CanonicalEntityID: entity.ID,
			ArticleID:         article.ID,
			MentionText:       "Person",
			SentenceContext:   "Person said something.",
			SentimentScore:    sentiment,
			StartOffset:       0,
			EndOffset:         6,
			MentionedAt:       at,
		}
	}

	t.Run("Insert mention", func(t *testing.T) {
		mention := newMention(day(3), &score)
		err := h.mentions.InsertMention(ctx, mention)
		require.NoError(t, err, "Expected InsertMention to not return an error")
		assert.NotZero(t, mention.ID)
		require.NotNil(t, mention.SentimentScore)
		assert.Equal(t, 0.4, *mention.SentimentScore)
		assert.WithinDuration(t, time.Now(), mention.CreatedAt, 5*time.Second)
	})

	t.Run("Recording the same mention twice yields two rows", func(t *testing.T) {
		first := newMention(day(5), nil)
		second := newMention(day(5), nil)
		require.NoError(t, h.mentions.InsertMention(ctx, first))
		require.NoError(t, h.mentions.InsertMention(ctx, second))
		assert.NotEqual(t, first.ID, second.ID)
		assert.Nil(t, first.SentimentScore)

		mentions, err := h.mentions.SelectMentionsByArticle(ctx, article.ID)
		require.NoError(t, err)
		assert.Len(t, mentions, 3)
	})

	t.Run("Mention count follows inserts", func(t *testing.T) {
		stored, err := h.entities.SelectEntity(ctx, entity.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.MentionCount)
	})

	t.Run("Select by entity with date range", func(t *testing.T) {
		all, err := h.mentions.SelectMentionsByEntity(ctx, entity.ID, nil)
		require.NoError(t, err)
		assert.Len(t, all, 3)
		assert.True(t, !all[0].MentionedAt.After(all[1].MentionedAt), "Expected mentions ordered by time")

		ranged, err := h.mentions.SelectMentionsByEntity(ctx, entity.ID, &model.DateRange{From: day(4)})
		require.NoError(t, err)
		assert.Len(t, ranged, 2)

		ranged, err = h.mentions.SelectMentionsByEntity(ctx, entity.ID, &model.DateRange{To: day(4)})
		require.NoError(t, err)
		assert.Len(t, ranged, 1)
	})

	t.Run("Sentiment outside range is rejected", func(t *testing.T) {
		bad := 1.5
		err := h.mentions.InsertMention(ctx, newMention(day(6), &bad))
		assert.Error(t, err)
		assert.Equal(t, model.CategoryPersistence, model.Categorize(err))
		assert.False(t, model.IsTransient(err))
	})

	t.Run("Unknown article is rejected", func(t *testing.T) {
		mention := newMention(day(6), nil)
		mention.ArticleID = 424242
		assert.Error(t, h.mentions.InsertMention(ctx, mention))
	})
}
