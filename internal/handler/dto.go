package handler

import (
	"time"

	"spystory-server/internal/models"
)

// APIError is the standardized error body. Code is the stable
// machine-readable taxonomy value clients branch on.
type APIError struct {
	Message string           `json:"message"`
	Code    models.ErrorCode `json:"code"`
}

type startSessionRequest struct {
	PrimaryConflict   string `json:"primaryConflict" binding:"required"`
	Setting           string `json:"setting" binding:"required"`
	NarrativeStyle    string `json:"narrativeStyle"`
	Mood              string `json:"mood"`
	ProtagonistName   string `json:"protagonistName" binding:"required"`
	ProtagonistGender string `json:"protagonistGender"`
}

type submitChoiceRequest struct {
	ChoiceID   string `json:"choiceId"`
	ChoiceText string `json:"choiceText"`
}

type createMissionRequest struct {
	Title             string     `json:"title" binding:"required"`
	Objective         string     `json:"objective" binding:"required"`
	GiverCharacterID  *string    `json:"giverCharacterId"`
	TargetCharacterID *string    `json:"targetCharacterId"`
	RewardCurrency    string     `json:"rewardCurrency"`
	RewardAmount      int64      `json:"rewardAmount"`
	Deadline          *time.Time `json:"deadline"`
}

type createCharacterRequest struct {
	Name      string         `json:"name" binding:"required"`
	Role      string         `json:"role"`
	Backstory string         `json:"backstory"`
	Traits    map[string]int `json:"traits"`
	PlotLines []string       `json:"plotLines"`
}

type interactRequest struct {
	Interaction string `json:"interaction" binding:"required"`
}

// nodeResponse trims the node for API consumers.
type nodeResponse struct {
	ID            string          `json:"id"`
	StoryID       string          `json:"storyId"`
	NarrativeText string          `json:"narrativeText"`
	IsEndpoint    bool            `json:"isEndpoint"`
	Choices       []models.Choice `json:"choices"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func toNodeResponse(node *models.StoryNode) nodeResponse {
	choices := node.Metadata.Choices
	if choices == nil {
		choices = []models.Choice{}
	}
	return nodeResponse{
		ID:            node.ID.String(),
		StoryID:       node.StoryID.String(),
		NarrativeText: node.NarrativeText,
		IsEndpoint:    node.IsEndpoint,
		Choices:       choices,
		CreatedAt:     node.CreatedAt,
	}
}
