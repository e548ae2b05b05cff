package newsgraph

import (
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

// NewPipelineConfiguration reads the pipeline policy from NEWSGRAPH_* environment variables.
// Unset variables keep their defaults; a .env file in the working directory is loaded first.
func NewPipelineConfiguration() (model.PipelineConfig, error) {
	err := helper.LoadEnv()
	if err != nil {
		return model.PipelineConfig{}, helper.NewError("load env", err)
	}

	def := model.DefaultPipelineConfig()
	config := model.PipelineConfig{
		SimilarityThreshold:  helper.GetEnvFloat("NEWSGRAPH_SIMILARITY_THRESHOLD", def.SimilarityThreshold),
		MergeThreshold:       helper.GetEnvFloat("NEWSGRAPH_MERGE_THRESHOLD", def.MergeThreshold),
		MinMentionLength:     helper.GetEnvInt("NEWSGRAPH_MIN_MENTION_LENGTH", def.MinMentionLength),
		CandidateLimit:       helper.GetEnvInt("NEWSGRAPH_CANDIDATE_LIMIT", def.CandidateLimit),
		MaxTextLength:        helper.GetEnvInt("NEWSGRAPH_MAX_TEXT_LENGTH", def.MaxTextLength),
		DefaultPeriod:        model.Period(helper.GetEnvString("NEWSGRAPH_DEFAULT_PERIOD", string(def.DefaultPeriod))),
		DefaultLookback:      helper.GetEnvInt("NEWSGRAPH_DEFAULT_LOOKBACK", def.DefaultLookback),
		MaxLookback:          helper.GetEnvInt("NEWSGRAPH_MAX_LOOKBACK", def.MaxLookback),
		DBTimeout:            helper.GetEnvDuration("NEWSGRAPH_DB_TIMEOUT", def.DBTimeout),
		MaxRetries:           helper.GetEnvInt("NEWSGRAPH_MAX_RETRIES", def.MaxRetries),
		RetryInitialInterval: helper.GetEnvDuration("NEWSGRAPH_RETRY_INITIAL_INTERVAL", def.RetryInitialInterval),
		Workers:              helper.GetEnvInt("NEWSGRAPH_WORKERS", def.Workers),
	}

	err = config.Validate()
	if err != nil {
		return model.PipelineConfig{}, helper.NewError("pipeline configuration validation", err)
	}

	return config, nil
}
