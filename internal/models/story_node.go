package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryNode is one narrative beat in a story tree. Every non-root node has
// exactly one parent belonging to the same story; the per-story node set
// forms a tree with a single root (parent_node_id IS NULL).
type StoryNode struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	StoryID       uuid.UUID    `db:"story_id" json:"storyId"`
	ParentNodeID  *uuid.UUID   `db:"parent_node_id" json:"parentNodeId,omitempty"`
	NarrativeText string       `db:"narrative_text" json:"narrativeText"`
	IsEndpoint    bool         `db:"is_endpoint" json:"isEndpoint"`
	Metadata      NodeMetadata `db:"metadata" json:"metadata"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
}

// NodeMetadata is the typed snapshot stored with each node. It is written
// once at node creation and must never be widened retroactively: historical
// snapshots stay exactly as they were generated.
type NodeMetadata struct {
	// Choices offered to the player at this node, in presentation order.
	Choices []Choice `json:"choices,omitempty"`
	// Characters present in the scene, snapshotted at generation time.
	Characters []CharacterSnapshot `json:"characters,omitempty"`
	// Mission state at the moment this node was created.
	Mission *MissionSnapshot `json:"mission,omitempty"`
	// Protagonist descriptor carried forward from the root node.
	Protagonist *Protagonist `json:"protagonist,omitempty"`
	// PreviousNodeID back-references the node the player departed from.
	PreviousNodeID *uuid.UUID `json:"previousNodeId,omitempty"`
	// ChoiceID / ChoiceText record the selection that produced this node.
	ChoiceID   string `json:"choiceId,omitempty"`
	ChoiceText string `json:"choiceText,omitempty"`
}

// Choice is one selectable continuation offered at a node.
type Choice struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Consequence string     `json:"consequence,omitempty"`
	CharacterID *uuid.UUID `json:"characterId,omitempty"`
}

// CharacterSnapshot freezes the parts of a character that matter for the
// encountered-character map. Write-once: existing entries are never updated.
type CharacterSnapshot struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Backstory string    `json:"backstory,omitempty"`
	PlotLines []string  `json:"plotLines,omitempty"`
}

// MissionSnapshot is the mission view embedded in node metadata and appended
// to the generation context.
type MissionSnapshot struct {
	ID        uuid.UUID     `json:"id"`
	Title     string        `json:"title"`
	Objective string        `json:"objective"`
	Status    MissionStatus `json:"status"`
	Progress  int           `json:"progress"`
}

// Protagonist describes the player character.
type Protagonist struct {
	Name   string `json:"name"`
	Gender string `json:"gender,omitempty"`
}
