package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionSnapshot is the state document broadcast to listeners (UI sync
// layers) after a successful transition. It is a read-only copy, decoupled
// from persistence.
type SessionSnapshot struct {
	UserID         uuid.UUID        `json:"userId"`
	Story          *Story           `json:"story,omitempty"`
	CurrentNode    *StoryNode       `json:"currentNode,omitempty"`
	NodeCount      int              `json:"nodeCount"`
	ActiveMissions []*Mission       `json:"activeMissions"`
	Balances       map[string]int64 `json:"balances,omitempty"`
	ChoiceHistory  []uuid.UUID      `json:"choiceHistory,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}
