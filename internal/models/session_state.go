package models

import (
	"time"

	"github.com/google/uuid"
)

// EncounteredCharacter is the write-once snapshot kept per character id in
// the session's encountered-character map.
type EncounteredCharacter struct {
	Name      string   `json:"name"`
	Backstory string   `json:"backstory,omitempty"`
	PlotLines []string `json:"plotLines,omitempty"`
}

// SessionState is the per-user aggregate owning the "current position"
// pointer into the story tree. NodeCount is persisted independently of the
// tree so it survives node churn; it is incremented by the act of requesting
// a continuation, not by the node write itself.
type SessionState struct {
	UserID         uuid.UUID  `db:"user_id" json:"userId"`
	CurrentStoryID *uuid.UUID `db:"current_story_id" json:"currentStoryId,omitempty"`
	CurrentNodeID  *uuid.UUID `db:"current_node_id" json:"currentNodeId,omitempty"`
	NodeCount      int        `db:"node_count" json:"nodeCount"`

	// Mission id sets are disjoint; their union only grows. A mission id never
	// appears in two sets at once.
	ActiveMissionIDs    []uuid.UUID `db:"active_missions" json:"activeMissionIds"`
	CompletedMissionIDs []uuid.UUID `db:"completed_missions" json:"completedMissionIds"`
	FailedMissionIDs    []uuid.UUID `db:"failed_missions" json:"failedMissionIds"`

	// EncounteredCharacters is keyed by character id string; entries are
	// write-once and never overwritten.
	EncounteredCharacters map[string]EncounteredCharacter `db:"encountered_characters" json:"encounteredCharacters"`

	// ChoiceHistory is the append-only ordered list of node ids visited.
	ChoiceHistory []uuid.UUID `db:"choice_history" json:"choiceHistory"`

	CurrencyBalances map[string]int64 `db:"currency_balances" json:"currencyBalances"`

	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	LastActiveAt time.Time `db:"last_active_at" json:"lastActiveAt"`
}

// NewSessionState builds the empty aggregate created on first contact.
func NewSessionState(userID uuid.UUID) *SessionState {
	now := time.Now().UTC()
	return &SessionState{
		UserID:                userID,
		ActiveMissionIDs:      []uuid.UUID{},
		CompletedMissionIDs:   []uuid.UUID{},
		FailedMissionIDs:      []uuid.UUID{},
		EncounteredCharacters: map[string]EncounteredCharacter{},
		ChoiceHistory:         []uuid.UUID{},
		CurrencyBalances:      map[string]int64{},
		CreatedAt:             now,
		LastActiveAt:          now,
	}
}

// MergeEncounteredCharacters adds snapshots for characters not yet present
// in the map. Existing entries are never overwritten.
func (s *SessionState) MergeEncounteredCharacters(chars []CharacterSnapshot) {
	if s.EncounteredCharacters == nil {
		s.EncounteredCharacters = map[string]EncounteredCharacter{}
	}
	for _, c := range chars {
		key := c.ID.String()
		if _, ok := s.EncounteredCharacters[key]; ok {
			continue
		}
		s.EncounteredCharacters[key] = EncounteredCharacter{
			Name:      c.Name,
			Backstory: c.Backstory,
			PlotLines: c.PlotLines,
		}
	}
}

// AppendChoice appends a node id to the choice history, skipping the append
// when the id is already the last entry (idempotent re-submits).
func (s *SessionState) AppendChoice(nodeID uuid.UUID) {
	n := len(s.ChoiceHistory)
	if n > 0 && s.ChoiceHistory[n-1] == nodeID {
		return
	}
	s.ChoiceHistory = append(s.ChoiceHistory, nodeID)
}

// MoveMissionToCompleted removes the mission id from the active set and adds
// it to the completed set. Removal is mandatory before insertion so the sets
// stay exclusive.
func (s *SessionState) MoveMissionToCompleted(missionID uuid.UUID) {
	s.ActiveMissionIDs = removeID(s.ActiveMissionIDs, missionID)
	if !containsID(s.CompletedMissionIDs, missionID) {
		s.CompletedMissionIDs = append(s.CompletedMissionIDs, missionID)
	}
}

// MoveMissionToFailed removes the mission id from the active set and adds it
// to the failed set.
func (s *SessionState) MoveMissionToFailed(missionID uuid.UUID) {
	s.ActiveMissionIDs = removeID(s.ActiveMissionIDs, missionID)
	if !containsID(s.FailedMissionIDs, missionID) {
		s.FailedMissionIDs = append(s.FailedMissionIDs, missionID)
	}
}

// AddActiveMission registers a freshly created mission.
func (s *SessionState) AddActiveMission(missionID uuid.UUID) {
	if !containsID(s.ActiveMissionIDs, missionID) {
		s.ActiveMissionIDs = append(s.ActiveMissionIDs, missionID)
	}
}

// Credit adds amount to a currency bucket, creating it on first credit.
func (s *SessionState) Credit(currency string, amount int64) {
	if s.CurrencyBalances == nil {
		s.CurrencyBalances = map[string]int64{}
	}
	s.CurrencyBalances[currency] += amount
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
