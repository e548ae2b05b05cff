package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/newsgraph/model"
)

// Extraction failure reasons
const (
	ReasonModelUnavailable = "model_unavailable"
	ReasonTextTooLong      = "text_too_long"
	ReasonModelFailed      = "model_failed"
)

var errModelClosed = errors.New("model is closed")

// Extractor runs a Model over article text and cleans up its output
type Extractor struct {
	model         Model
	maxTextLength int
}

// NewExtractor creates an extractor. A nil model makes every extraction fail.
func NewExtractor(m Model, config model.PipelineConfig) *Extractor {
	return &Extractor{
		model:         m,
		maxTextLength: config.MaxTextLength,
	}
}

// Extract returns the mentions in text ordered by position.
// Empty text yields no mentions. Text longer than the configured maximum
// and a missing or failing model yield an ExtractionError.
// Mentions with an unknown label, an empty span or offsets outside text are dropped.
func (e *Extractor) Extract(text string) ([]model.RawMention, error) {
	if strings.TrimSpace(text) == "" {
		return []model.RawMention{}, nil
	}
	if e.maxTextLength > 0 && utf8.RuneCountInString(text) > e.maxTextLength {
		return nil, &model.ExtractionError{
			Reason: ReasonTextTooLong,
			Err:    fmt.Errorf("text has %d runes, maximum is %d", utf8.RuneCountInString(text), e.maxTextLength),
		}
	}
	if e.model == nil {
		return nil, &model.ExtractionError{Reason: ReasonModelUnavailable}
	}

	raw, err := e.model.Extract(text)
	if err != nil {
		reason := ReasonModelFailed
		if errors.Is(err, errModelClosed) {
			reason = ReasonModelUnavailable
		}
		return nil, &model.ExtractionError{Reason: reason, Err: err}
	}

	mentions := make([]model.RawMention, 0, len(raw))
	for _, m := range raw {
		if !m.Label.Valid() || strings.TrimSpace(m.Text) == "" {
			continue
		}
		if m.StartOffset < 0 || m.EndOffset > len(text) || m.StartOffset >= m.EndOffset {
			continue
		}
		mentions = append(mentions, m)
	}

	slices.SortStableFunc(mentions, func(a, b model.RawMention) int {
		if a.StartOffset != b.StartOffset {
			return a.StartOffset - b.StartOffset
		}
		return a.EndOffset - b.EndOffset
	})

	return mentions, nil
}

// locate finds word in text at or after from and returns its byte span.
// The match is case-sensitive first and falls back to a case-insensitive search.
func locate(text string, word string, from int) (int, int, bool) {
	word = strings.TrimSpace(word)
	if word == "" || from < 0 || from > len(text) {
		return 0, 0, false
	}

	if i := strings.Index(text[from:], word); i >= 0 {
		return from + i, from + i + len(word), true
	}
	lowerText := strings.ToLower(text[from:])
	lowerWord := strings.ToLower(word)
	if len(lowerText) != len(text[from:]) || len(lowerWord) != len(word) {
		return 0, 0, false
	}
	if i := strings.Index(lowerText, lowerWord); i >= 0 {
		return from + i, from + i + len(word), true
	}
	return 0, 0, false
}
