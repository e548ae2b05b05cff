package pipeline

import (
	"fmt"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

// DefaultNERModelName is the token classification model used by NewNERModel
const DefaultNERModelName = "KnightsAnalytics/distilbert-NER"

// nerLabels maps the CoNLL labels of distilbert-NER to entity types
var nerLabels = map[string]model.EntityType{
	"PER":  model.EntityTypePerson,
	"ORG":  model.EntityTypeOrg,
	"LOC":  model.EntityTypeGPE,
	"MISC": model.EntityTypeMisc,
}

// NERModel extracts mentions with a hugot token classification pipeline
type NERModel struct {
	mu       sync.RWMutex
	session  *hugot.Session
	pipeline *pipelines.TokenClassificationPipeline
}

// NewNERModel loads distilbert-NER, downloading it on first use
func NewNERModel() (*NERModel, error) {
	modelPath, err := helper.PrepareModel(DefaultNERModelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return &NERModel{session: session, pipeline: nerPipeline}, nil
}

// Extract runs NER over text. Labels outside PER, ORG, LOC and MISC are dropped.
// Long texts are split into sentence chunks that fit the model window.
func (n *NERModel) Extract(text string) ([]model.RawMention, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.pipeline == nil {
		return nil, errModelClosed
	}

	chunks := SentenceChunks(text, DefaultChunkSize)
	if len(chunks) == 0 {
		return []model.RawMention{}, nil
	}
	inputs := make([]string, len(chunks))
	for i, chunk := range chunks {
		inputs[i] = chunk.Text
	}

	result, err := n.pipeline.RunPipeline(inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to run NER: %w", err)
	}

	mentions := []model.RawMention{}
	for i, entities := range result.Entities {
		if i >= len(chunks) {
			break
		}
		chunk := chunks[i]
		cursor := 0
		for _, entity := range entities {
			label, ok := nerLabels[normalizeEntityType(entity.Entity)]
			if !ok {
				continue
			}

			start, end := int(entity.Start), int(entity.End)
			if start >= end || end > len(chunk.Text) || !strings.EqualFold(strings.TrimSpace(chunk.Text[start:end]), strings.TrimSpace(entity.Word)) {
				var found bool
				start, end, found = locate(chunk.Text, entity.Word, cursor)
				if !found {
					continue
				}
			}
			cursor = end

			mentions = append(mentions, model.RawMention{
				Text:        chunk.Text[start:end],
				Label:       label,
				StartOffset: chunk.Offset + start,
				EndOffset:   chunk.Offset + end,
				Confidence:  float64(entity.Score),
			})
		}
	}

	return mentions, nil
}

// Close releases the hugot session. Extract fails afterwards.
func (n *NERModel) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session == nil {
		return nil
	}
	err := n.session.Destroy()
	n.session = nil
	n.pipeline = nil
	return err
}

// normalizeEntityType removes B- and I- prefixes from NER labels
func normalizeEntityType(label string) string {
	if strings.HasPrefix(label, "B-") {
		return label[2:]
	}
	if strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}
