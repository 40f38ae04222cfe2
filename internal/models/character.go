package models

import (
	"time"

	"github.com/google/uuid"
)

// CharacterRole matches the ENUM 'character_role' in the DB.
type CharacterRole string

const (
	RoleVillain      CharacterRole = "villain"
	RoleNeutral      CharacterRole = "neutral"
	RoleMissionGiver CharacterRole = "mission_giver"
	RoleUndetermined CharacterRole = "undetermined"
)

// Character is an NPC. Once a character is referenced by a node metadata
// snapshot it is treated as immutable: the snapshot keeps its own copy of the
// fields it needs, so later edits cannot rewrite history.
type Character struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Traits    map[string]int `db:"traits" json:"traits,omitempty"`
	Role      CharacterRole  `db:"role" json:"role"`
	Backstory string         `db:"backstory" json:"backstory,omitempty"`
	PlotLines []string       `db:"plot_lines" json:"plotLines,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// SnapshotOf builds the write-once snapshot stored in node metadata and in
// the session's encountered-character map.
func (c *Character) SnapshotOf() CharacterSnapshot {
	return CharacterSnapshot{
		ID:        c.ID,
		Name:      c.Name,
		Backstory: c.Backstory,
		PlotLines: c.PlotLines,
	}
}
