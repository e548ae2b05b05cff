package model

import "time"

// EntityMentionContext is one recorded occurrence of a canonical entity in an article.
// Rows are append-only.
type EntityMentionContext struct {
	ID                int64     `json:"id"`
	CanonicalEntityID int64     `json:"canonical_entity_id"`
	ArticleID         int64     `json:"article_id"`
	MentionText       string    `json:"mention_text"`
	SentenceContext   string    `json:"sentence_context"`
	SentimentScore    *float64  `json:"sentiment_score"`
	StartOffset       int       `json:"start_offset"`
	EndOffset         int       `json:"end_offset"`
	MentionedAt       time.Time `json:"mentioned_at"`
	CreatedAt         time.Time `json:"created_at"`
}

// DateRange is an inclusive time window. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t lies inside the range
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}
