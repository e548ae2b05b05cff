package model

import "time"

// RelationshipType classifies an entity relationship
type RelationshipType string

const (
	RelationshipTypeCoOccurrence RelationshipType = "CO_OCCURRENCE"
)

// EntityRelationship is a symmetric link between two canonical entities.
// EntityAID is always lower than EntityBID.
type EntityRelationship struct {
	ID               int64            `json:"id"`
	EntityAID        int64            `json:"entity_a_id"`
	EntityBID        int64            `json:"entity_b_id"`
	RelationshipType RelationshipType `json:"relationship_type"`
	Confidence       float64          `json:"confidence"`
	FirstObservedAt  time.Time        `json:"first_observed_at"`
	LastObservedAt   time.Time        `json:"last_observed_at"`
	ObservationCount int              `json:"observation_count"`
}

// Other returns the id on the opposite side of the relationship from entityID
func (r *EntityRelationship) Other(entityID int64) int64 {
	if r.EntityAID == entityID {
		return r.EntityBID
	}
	return r.EntityAID
}

// OrderedPair returns a and b with the lower id first
func OrderedPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// RelationshipConfidence maps an observation count to a confidence in [0, 1).
// It grows with n and never reaches 1.
func RelationshipConfidence(n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n) / float64(n+1)
}
