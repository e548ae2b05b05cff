package model

import "github.com/google/uuid"

// ArticleStatus is the outcome of processing one article
type ArticleStatus string

const (
	ArticleStatusProcessed ArticleStatus = "processed"
	ArticleStatusSkipped   ArticleStatus = "skipped"
	ArticleStatusFailed    ArticleStatus = "failed"
)

// ArticleResult reports what happened to a single article
type ArticleResult struct {
	ArticleID            int64         `json:"article_id"`
	Status               ArticleStatus `json:"status"`
	EntitiesProcessed    int           `json:"entities_processed"`
	MentionsRecorded     int           `json:"mentions_recorded"`
	RelationshipsUpdated int           `json:"relationships_updated"`
	SkippedMentions      int           `json:"skipped_mentions"`
	Attempts             int           `json:"attempts"`
	Errors               []string      `json:"errors,omitempty"`
	ErrorCategory        ErrorCategory `json:"error_category,omitempty"`
}

// BatchResult collects the article results of one batch
type BatchResult struct {
	BatchID uuid.UUID       `json:"batch_id"`
	Results []ArticleResult `json:"results"`
}

// Count returns how many articles ended with the given status
func (b *BatchResult) Count(status ArticleStatus) int {
	n := 0
	for _, r := range b.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the results of all failed articles
func (b *BatchResult) Failed() []ArticleResult {
	failed := []ArticleResult{}
	for _, r := range b.Results {
		if r.Status == ArticleStatusFailed {
			failed = append(failed, r)
		}
	}
	return failed
}
