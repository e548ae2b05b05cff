package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPipelineConfig(t *testing.T) {
	t.Run("Returns correct default values", func(t *testing.T) {
		config := DefaultPipelineConfig()

		assert.Equal(t, 0.85, config.SimilarityThreshold, "Default SimilarityThreshold should be 0.85")
		assert.Equal(t, 0.9, config.MergeThreshold, "Default MergeThreshold should be 0.9")
		assert.Equal(t, 2, config.MinMentionLength, "Default MinMentionLength should be 2")
		assert.Equal(t, 100000, config.MaxTextLength)
		assert.Equal(t, PeriodWeek, config.DefaultPeriod)
		assert.Equal(t, 4, config.DefaultLookback)
		assert.Equal(t, 1000, config.MaxLookback)
		assert.Equal(t, 10*time.Second, config.DBTimeout)
		assert.Equal(t, 3, config.MaxRetries)
		assert.Equal(t, 4, config.Workers)
	})

	t.Run("Default config is valid", func(t *testing.T) {
		assert.NoError(t, DefaultPipelineConfig().Validate())
	})
}

func TestPipelineConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *PipelineConfig)
		field  string
	}{
		{"Threshold above one", func(c *PipelineConfig) { c.SimilarityThreshold = 1.2 }, "similarity_threshold"},
		{"Zero merge threshold", func(c *PipelineConfig) { c.MergeThreshold = 0 }, "merge_threshold"},
		{"Zero min mention length", func(c *PipelineConfig) { c.MinMentionLength = 0 }, "min_mention_length"},
		{"Unknown period", func(c *PipelineConfig) { c.DefaultPeriod = "year" }, "period"},
		{"Zero workers", func(c *PipelineConfig) { c.Workers = 0 }, "workers"},
		{"Negative retries", func(c *PipelineConfig) { c.MaxRetries = -1 }, "max_retries"},
		{"Zero max lookback", func(c *PipelineConfig) { c.MaxLookback = 0 }, "max_lookback"},
		{"Default lookback above max", func(c *PipelineConfig) { c.DefaultLookback = c.MaxLookback + 1 }, "default_lookback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultPipelineConfig()
			tt.modify(&config)

			err := config.Validate()
			assert.Error(t, err, "Expected Validate to return an error")
			assert.Contains(t, err.Error(), tt.field)
			assert.Equal(t, CategoryValidation, Categorize(err))
		})
	}
}
