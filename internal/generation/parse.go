package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"spystory-server/internal/models"
)

var jsonFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// extractJSON pulls the JSON object out of a raw model response, tolerating
// markdown fences and surrounding prose.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if matches := jsonFenceRegex.FindStringSubmatch(raw); len(matches) > 1 {
		candidate := strings.TrimSpace(matches[1])
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}

	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first != -1 && last > first {
		candidate := raw[first : last+1]
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}

	return raw
}

// rawResult mirrors the JSON shape the prompt asks the model for.
type rawResult struct {
	NarrativeText string         `json:"narrative_text"`
	Choices       []rawChoice    `json:"choices"`
	Characters    []rawCharacter `json:"characters"`
	MissionUpdate *struct {
		Status string `json:"status"`
		Detail string `json:"detail"`
	} `json:"mission_update"`
	IsEndpoint bool `json:"is_endpoint"`
}

type rawChoice struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Consequence string `json:"consequence"`
	CharacterID string `json:"character_id"`
}

type rawCharacter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// parseResult normalizes a raw model response into a GenerationResult.
// Missing choices and mission updates get safe defaults; a missing or empty
// narrative is unrecoverable and rejected.
func parseResult(rawText string) (*models.GenerationResult, error) {
	var raw rawResult
	if err := json.Unmarshal([]byte(extractJSON(rawText)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidGenerationResult, err)
	}

	narrative := strings.TrimSpace(raw.NarrativeText)
	if narrative == "" {
		return nil, fmt.Errorf("%w: empty narrative_text", models.ErrInvalidGenerationResult)
	}

	result := &models.GenerationResult{
		NarrativeText: narrative,
		Choices:       make([]models.Choice, 0, len(raw.Choices)),
		MissionSignal: models.MissionSignal{Status: models.MissionSignalUnchanged},
		IsEndpoint:    raw.IsEndpoint,
	}

	for i, rc := range raw.Choices {
		text := strings.TrimSpace(rc.Text)
		if text == "" {
			continue
		}
		id := strings.TrimSpace(rc.ID)
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		choice := models.Choice{
			ID:          id,
			Text:        text,
			Consequence: strings.TrimSpace(rc.Consequence),
		}
		// Invented or malformed character references carry no meaning
		// downstream, so they are dropped rather than rejected.
		if characterID, err := uuid.Parse(strings.TrimSpace(rc.CharacterID)); err == nil {
			choice.CharacterID = &characterID
		}
		result.Choices = append(result.Choices, choice)
	}

	seenCharacters := make(map[uuid.UUID]bool, len(raw.Characters))
	for _, rc := range raw.Characters {
		characterID, err := uuid.Parse(strings.TrimSpace(rc.ID))
		if err != nil || seenCharacters[characterID] {
			continue
		}
		seenCharacters[characterID] = true
		result.CharacterIDs = append(result.CharacterIDs, characterID)
	}

	// An endpoint offers no continuations; a non-endpoint without choices
	// would strand the player.
	if result.IsEndpoint {
		result.Choices = result.Choices[:0]
	} else if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: non-endpoint response offered no choices", models.ErrInvalidGenerationResult)
	}

	if raw.MissionUpdate != nil {
		switch status := models.MissionSignalStatus(strings.ToLower(strings.TrimSpace(raw.MissionUpdate.Status))); status {
		case models.MissionSignalProgressed, models.MissionSignalCompleted, models.MissionSignalFailed:
			result.MissionSignal = models.MissionSignal{Status: status, Detail: strings.TrimSpace(raw.MissionUpdate.Detail)}
		default:
			// Unknown statuses degrade to unchanged rather than failing
			// the whole generation.
		}
	}

	return result, nil
}
