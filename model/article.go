package model

import (
	"strings"
	"time"
)

// Article is the input handed over by the ingestion layer.
// Content is not persisted; the articles table keeps metadata and the processed marker.
type Article struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content,omitempty"`
	URL         string     `json:"url,omitempty"`
	Source      string     `json:"source,omitempty"`
	PublishedAt time.Time  `json:"published_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Metadata    Metadata   `json:"metadata,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Text joins title and content into the text that extraction runs on.
// Mention offsets refer to this string.
func (a *Article) Text() string {
	title := strings.TrimSpace(a.Title)
	content := strings.TrimSpace(a.Content)
	switch {
	case title == "":
		return content
	case content == "":
		return title
	}
	return title + "\n\n" + content
}

// ObservedAt is the timestamp mentions of this article are attributed to
func (a *Article) ObservedAt(now time.Time) time.Time {
	if a.PublishedAt.IsZero() {
		return now.UTC()
	}
	return a.PublishedAt.UTC()
}
