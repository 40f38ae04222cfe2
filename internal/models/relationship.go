package models

import (
	"time"

	"github.com/google/uuid"
)

// RelationshipEvent is one append-only audit entry for a relationship change.
type RelationshipEvent struct {
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RelationshipRecord is derived per-character affinity state, keyed by
// (user, character). Levels accumulate without clamping: extreme values are
// valid and meaningful. Records are created lazily and never deleted.
type RelationshipRecord struct {
	UserID            uuid.UUID           `db:"user_id" json:"userId"`
	CharacterID       uuid.UUID           `db:"character_id" json:"characterId"`
	RelationshipLevel int                 `db:"relationship_level" json:"relationshipLevel"`
	TrustLevel        int                 `db:"trust_level" json:"trustLevel"`
	LoyaltyLevel      int                 `db:"loyalty_level" json:"loyaltyLevel"`
	LastInteractionAt time.Time           `db:"last_interaction_at" json:"lastInteractionAt"`
	Audit             []RelationshipEvent `db:"audit" json:"audit,omitempty"`
}

// ZeroRelationship is the default returned for characters the user has not
// interacted with yet. Reads never fail.
func ZeroRelationship(userID, characterID uuid.UUID) *RelationshipRecord {
	return &RelationshipRecord{
		UserID:      userID,
		CharacterID: characterID,
		Audit:       []RelationshipEvent{},
	}
}
