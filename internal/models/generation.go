package models

import "github.com/google/uuid"

// MissionSignalStatus is the mission outcome reported by the generation
// collaborator alongside each continuation.
type MissionSignalStatus string

const (
	MissionSignalUnchanged  MissionSignalStatus = "unchanged"
	MissionSignalProgressed MissionSignalStatus = "progressed"
	MissionSignalCompleted  MissionSignalStatus = "completed"
	MissionSignalFailed     MissionSignalStatus = "failed"
)

// MissionSignal carries the narrative-confirmed mission outcome. Numeric
// progress alone never completes a mission; this signal is the trigger.
type MissionSignal struct {
	Status MissionSignalStatus `json:"status"`
	Detail string              `json:"detail,omitempty"`
}

// GenerationRequest is the shape handed to the generation collaborator.
type GenerationRequest struct {
	Context           string       // assembled bounded context
	ChosenChoice      string       // the player's selection (id or custom text)
	PreviousNarrative string       // narrative text of the departed node
	RecentHistory     []string     // narratives of recently departed nodes, oldest first
	Cast              []Character  // story cast the scene may reference by id
	Story             *Story       // style parameters (mood, conflict, setting)
	Protagonist       *Protagonist // carried forward from the root node
	NodeCount         int          // current depth counter, for pacing
	OpeningScene      bool         // true for the very first node of a story
}

// GenerationResult is the normalized collaborator response. Any shape
// deviation in the raw response is rejected or defaulted at the boundary
// before this struct is produced.
type GenerationResult struct {
	NarrativeText string        `json:"narrativeText"`
	Choices       []Choice      `json:"choices"`
	MissionSignal MissionSignal `json:"missionSignal"`
	IsEndpoint    bool          `json:"isEndpoint"`
	// CharacterIDs names the cast members present in the scene, resolved
	// against the ids offered in the prompt. Unknown ids are dropped during
	// parsing.
	CharacterIDs []uuid.UUID `json:"characterIds,omitempty"`
}
