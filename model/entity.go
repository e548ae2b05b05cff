package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntityType is the NER label class of a canonical entity
type EntityType string

const (
	EntityTypePerson  EntityType = "PERSON"
	EntityTypeOrg     EntityType = "ORG"
	EntityTypeGPE     EntityType = "GPE"
	EntityTypeLoc     EntityType = "LOC"
	EntityTypeNORP    EntityType = "NORP"
	EntityTypeEvent   EntityType = "EVENT"
	EntityTypeProduct EntityType = "PRODUCT"
	EntityTypeMisc    EntityType = "MISC"
)

// EntityTypes lists all known entity types
var EntityTypes = []EntityType{
	EntityTypePerson,
	EntityTypeOrg,
	EntityTypeGPE,
	EntityTypeLoc,
	EntityTypeNORP,
	EntityTypeEvent,
	EntityTypeProduct,
	EntityTypeMisc,
}

// Valid reports whether t is a known entity type
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseEntityType converts a label string into an EntityType
func ParseEntityType(label string) (EntityType, error) {
	t := EntityType(label)
	if !t.Valid() {
		return "", &ValidationError{Field: "entity_type", Message: fmt.Sprintf("unknown entity type %q", label)}
	}
	return t, nil
}

// RawMention is a single entity span found by the extractor.
// It is never persisted; the resolver consumes it right away.
type RawMention struct {
	Text            string     `json:"text"`
	Label           EntityType `json:"label"`
	StartOffset     int        `json:"start_offset"`
	EndOffset       int        `json:"end_offset"`
	SourceArticleID int64      `json:"source_article_id"`
	Confidence      float64    `json:"confidence,omitempty"`
}

// CanonicalEntity is the stable identity behind many surface-form mentions.
// CanonicalName and EntityType never change after creation.
type CanonicalEntity struct {
	ID            int64      `json:"id"`
	RID           uuid.UUID  `json:"rid"`
	CanonicalName string     `json:"canonical_name"`
	NameTokens    []string   `json:"name_tokens"`
	EntityType    EntityType `json:"entity_type"`
	FirstSeenAt   time.Time  `json:"first_seen_at"`
	LastSeenAt    time.Time  `json:"last_seen_at"`
	MentionCount  int        `json:"mention_count"`
	Metadata      Metadata   `json:"metadata,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
