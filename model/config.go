package model

import (
	"errors"
	"time"
)

// PipelineConfig holds the static policy of the entity pipeline
type PipelineConfig struct {
	// Resolution
	SimilarityThreshold float64 `json:"similarity_threshold"`
	MergeThreshold      float64 `json:"merge_threshold"`
	MinMentionLength    int     `json:"min_mention_length"`
	CandidateLimit      int     `json:"candidate_limit"`

	// Extraction
	MaxTextLength int `json:"max_text_length"`

	// Trends
	DefaultPeriod   Period `json:"default_period"`
	DefaultLookback int    `json:"default_lookback"`
	MaxLookback     int    `json:"max_lookback"`

	// Processing
	DBTimeout            time.Duration `json:"db_timeout"`
	MaxRetries           int           `json:"max_retries"`
	RetryInitialInterval time.Duration `json:"retry_initial_interval"`
	Workers              int           `json:"workers"`
}

// DefaultPipelineConfig returns the default pipeline policy
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SimilarityThreshold:  0.85,
		MergeThreshold:       0.9,
		MinMentionLength:     2,
		CandidateLimit:       50,
		MaxTextLength:        100000,
		DefaultPeriod:        PeriodWeek,
		DefaultLookback:      4,
		MaxLookback:          1000,
		DBTimeout:            10 * time.Second,
		MaxRetries:           3,
		RetryInitialInterval: 200 * time.Millisecond,
		Workers:              4,
	}
}

// Validate checks the configuration for values the pipeline cannot work with
func (c PipelineConfig) Validate() error {
	var errs []error
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, &ValidationError{Field: "similarity_threshold", Message: "must be in (0, 1]"})
	}
	if c.MergeThreshold <= 0 || c.MergeThreshold > 1 {
		errs = append(errs, &ValidationError{Field: "merge_threshold", Message: "must be in (0, 1]"})
	}
	if c.MinMentionLength < 1 {
		errs = append(errs, &ValidationError{Field: "min_mention_length", Message: "must be at least 1"})
	}
	if c.MaxTextLength < 1 {
		errs = append(errs, &ValidationError{Field: "max_text_length", Message: "must be at least 1"})
	}
	if _, err := ParsePeriod(string(c.DefaultPeriod)); err != nil {
		errs = append(errs, err)
	}
	if c.MaxLookback < 1 {
		errs = append(errs, &ValidationError{Field: "max_lookback", Message: "must be at least 1"})
	}
	if c.DefaultLookback < 1 || c.DefaultLookback > c.MaxLookback {
		errs = append(errs, &ValidationError{Field: "default_lookback", Message: "must be in [1, max_lookback]"})
	}
	if c.DBTimeout <= 0 {
		errs = append(errs, &ValidationError{Field: "db_timeout", Message: "must be positive"})
	}
	if c.MaxRetries < 0 {
		errs = append(errs, &ValidationError{Field: "max_retries", Message: "must not be negative"})
	}
	if c.Workers < 1 {
		errs = append(errs, &ValidationError{Field: "workers", Message: "must be at least 1"})
	}
	return errors.Join(errs...)
}
