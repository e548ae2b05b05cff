package pipeline

import (
	"fmt"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/newsgraph/helper"
)

// DefaultSentimentModelName is the text classification model used by NewSentimentModel
const DefaultSentimentModelName = "KnightsAnalytics/distilbert-base-uncased-finetuned-sst-2-english"

// SentimentModel scores sentences with a hugot text classification pipeline
type SentimentModel struct {
	mu       sync.RWMutex
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
}

// NewSentimentModel loads the SST-2 sentiment model, downloading it on first use
func NewSentimentModel() (*SentimentModel, error) {
	modelPath, err := helper.PrepareModel(DefaultSentimentModelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "sentiment-pipeline",
		Options: []hugot.TextClassificationOption{
			pipelines.WithSoftmax(),
		},
	}
	sentimentPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentiment pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentiment pipeline: %w", err)
	}

	return &SentimentModel{session: session, pipeline: sentimentPipeline}, nil
}

// Score returns P(positive) - P(negative) for text
func (s *SentimentModel) Score(text string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pipeline == nil {
		return 0, errModelClosed
	}

	result, err := s.pipeline.RunPipeline([]string{text})
	if err != nil {
		return 0, fmt.Errorf("failed to run sentiment classification: %w", err)
	}
	if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
		return 0, fmt.Errorf("sentiment classification returned no labels")
	}

	probabilities := map[string]float64{}
	for _, output := range result.ClassificationOutputs[0] {
		probabilities[strings.ToUpper(output.Label)] = float64(output.Score)
	}
	return polarity(probabilities), nil
}

// Close releases the hugot session. Score fails afterwards.
func (s *SentimentModel) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	s.pipeline = nil
	return err
}

// polarity turns binary class probabilities into a score in [-1, 1].
// A missing class is the complement of the present one.
func polarity(probabilities map[string]float64) float64 {
	pos, hasPos := probabilities["POSITIVE"]
	neg, hasNeg := probabilities["NEGATIVE"]
	switch {
	case hasPos && !hasNeg:
		neg = 1 - pos
	case hasNeg && !hasPos:
		pos = 1 - neg
	case !hasPos && !hasNeg:
		return 0
	}
	return max(-1, min(1, pos-neg))
}
