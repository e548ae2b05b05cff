package pipeline

import (
	"fmt"
	"sync"

	"github.com/jdkato/prose/v2"
	"github.com/siherrmann/newsgraph/model"
)

// ProseModel extracts mentions with the averaged perceptron NER of prose.
// It needs no model download and only knows PERSON and GPE.
type ProseModel struct {
	mu     sync.RWMutex
	closed bool
}

// NewProseModel creates a prose backed model
func NewProseModel() *ProseModel {
	return &ProseModel{}
}

// Extract runs prose NER over text and locates every entity in it
func (p *ProseModel) Extract(text string) ([]model.RawMention, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, errModelClosed
	}

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	mentions := []model.RawMention{}
	cursor := 0
	for _, ent := range doc.Entities() {
		label, err := model.ParseEntityType(ent.Label)
		if err != nil {
			continue
		}
		start, end, ok := locate(text, ent.Text, cursor)
		if !ok {
			continue
		}
		cursor = end

		mentions = append(mentions, model.RawMention{
			Text:        text[start:end],
			Label:       label,
			StartOffset: start,
			EndOffset:   end,
			Confidence:  1,
		})
	}

	return mentions, nil
}

// Close marks the model closed
func (p *ProseModel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
