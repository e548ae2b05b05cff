package model

import (
	"fmt"
	"time"
)

// Period is the bucket size of a trend
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod converts a string into a Period
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", &ValidationError{Field: "period", Message: fmt.Sprintf("unknown period %q", s)}
}

// TrendPoint is the aggregate of one entity's mentions in one bucket.
// AvgSentiment is nil when no mention in the bucket carries a sentiment score.
type TrendPoint struct {
	CanonicalEntityID int64     `json:"canonical_entity_id"`
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
	MentionCount      int       `json:"mention_count"`
	AvgSentiment      *float64  `json:"avg_sentiment"`
}
