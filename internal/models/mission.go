package models

import (
	"time"

	"github.com/google/uuid"
)

// MissionStatus is the lifecycle state of a mission. Transitions are
// one-directional: active -> completed or active -> failed, no resurrection.
type MissionStatus string

const (
	MissionStatusActive    MissionStatus = "active"
	MissionStatusCompleted MissionStatus = "completed"
	MissionStatusFailed    MissionStatus = "failed"
)

// Terminal reports whether no further status transitions are allowed.
func (s MissionStatus) Terminal() bool {
	return s == MissionStatusCompleted || s == MissionStatusFailed
}

// ProgressUpdate is one immutable audit entry in a mission's progress log.
// The log only ever grows; existing entries are never mutated.
type ProgressUpdate struct {
	Progress    int           `json:"progress"`
	Status      MissionStatus `json:"status"`
	Timestamp   time.Time     `json:"timestamp"`
	Description string        `json:"description,omitempty"`
}

// Mission is a story objective owned by a user session. Giver and target
// character references are weak (by id, nullable, no cascade).
type Mission struct {
	ID                uuid.UUID        `db:"id" json:"id"`
	UserID            uuid.UUID        `db:"user_id" json:"userId"`
	StoryID           uuid.UUID        `db:"story_id" json:"storyId"`
	GiverCharacterID  *uuid.UUID       `db:"giver_character_id" json:"giverCharacterId,omitempty"`
	TargetCharacterID *uuid.UUID       `db:"target_character_id" json:"targetCharacterId,omitempty"`
	Title             string           `db:"title" json:"title"`
	Objective         string           `db:"objective" json:"objective"`
	Status            MissionStatus    `db:"status" json:"status"`
	Progress          int              `db:"progress" json:"progress"`
	ProgressUpdates   []ProgressUpdate `db:"progress_updates" json:"progressUpdates"`
	RewardCurrency    string           `db:"reward_currency" json:"rewardCurrency"`
	RewardAmount      int64            `db:"reward_amount" json:"rewardAmount"`
	Deadline          *time.Time       `db:"deadline" json:"deadline,omitempty"`
	FailureReason     *string          `db:"failure_reason" json:"failureReason,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updatedAt"`
	CompletedAt       *time.Time       `db:"completed_at" json:"completedAt,omitempty"`
}

// Snapshot returns the mission view embedded into node metadata and the
// generation context.
func (m *Mission) Snapshot() *MissionSnapshot {
	if m == nil {
		return nil
	}
	return &MissionSnapshot{
		ID:        m.ID,
		Title:     m.Title,
		Objective: m.Objective,
		Status:    m.Status,
		Progress:  m.Progress,
	}
}

// CurrencyTransaction is an append-only audit row for currency movements
// (mission rewards for now).
type CurrencyTransaction struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"userId"`
	Currency    string    `db:"currency" json:"currency"`
	Amount      int64     `db:"amount" json:"amount"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
