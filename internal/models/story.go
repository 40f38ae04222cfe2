package models

import (
	"time"

	"github.com/google/uuid"
)

// Story holds the immutable parameters a story was generated with. Only cast
// membership (story_characters) may change after creation.
type Story struct {
	ID              uuid.UUID `db:"id" json:"id"`
	UserID          uuid.UUID `db:"user_id" json:"userId"`
	Title           string    `db:"title" json:"title"`
	PrimaryConflict string    `db:"primary_conflict" json:"primaryConflict"`
	Setting         string    `db:"setting" json:"setting"`
	NarrativeStyle  string    `db:"narrative_style" json:"narrativeStyle"`
	Mood            string    `db:"mood" json:"mood"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// StoryParams is the caller-supplied input for starting a new story.
type StoryParams struct {
	PrimaryConflict   string `json:"primaryConflict"`
	Setting           string `json:"setting"`
	NarrativeStyle    string `json:"narrativeStyle"`
	Mood              string `json:"mood"`
	ProtagonistName   string `json:"protagonistName"`
	ProtagonistGender string `json:"protagonistGender"`
}

// PlotArcStatusActive marks arcs whose key nodes are always fed into the
// generation context regardless of recency.
const PlotArcStatusActive = "active"

// PlotArc is an externally curated list of narratively significant nodes.
// The core only consumes the key node id list of active arcs.
type PlotArc struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	StoryID    uuid.UUID   `db:"story_id" json:"storyId"`
	Name       string      `db:"name" json:"name"`
	Status     string      `db:"status" json:"status"`
	KeyNodeIDs []uuid.UUID `db:"key_node_ids" json:"keyNodeIds"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
}
