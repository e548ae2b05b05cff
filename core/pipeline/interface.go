package pipeline

import "github.com/siherrmann/newsgraph/model"

// Model is a named entity recognition backend.
// Models are created explicitly, owned by the caller and released with Close.
type Model interface {
	Extract(text string) ([]model.RawMention, error)
	Close() error
}

// SentimentScorer scores the sentiment of a sentence in [-1, 1]
type SentimentScorer interface {
	Score(text string) (float64, error)
	Close() error
}

// ExtractFunc adapts a plain function to a Model
type ExtractFunc func(text string) ([]model.RawMention, error)

// Extract calls f
func (f ExtractFunc) Extract(text string) ([]model.RawMention, error) {
	return f(text)
}

// Close does nothing
func (f ExtractFunc) Close() error {
	return nil
}

// SentimentFunc adapts a plain function to a SentimentScorer
type SentimentFunc func(text string) (float64, error)

// Score calls f
func (f SentimentFunc) Score(text string) (float64, error) {
	return f(text)
}

// Close does nothing
func (f SentimentFunc) Close() error {
	return nil
}
