package generation

import (
	"fmt"
	"strings"

	"spystory-server/internal/models"
)

const systemPrompt = `You are the narrative engine of an interactive espionage story. ` +
	`You continue a branching spy thriller one scene at a time, in second person, ` +
	`keeping continuity with everything in the provided context. ` +
	`Respond with a single JSON object and nothing else, using exactly this shape:
{
  "narrative_text": "the next scene, 2-4 paragraphs",
  "choices": [
    {"id": "1", "text": "short action the player can take", "consequence": "hint at what may follow", "character_id": "id of the listed character this action involves, omit otherwise"}
  ],
  "characters": [
    {"id": "id copied exactly from CHARACTERS IN PLAY", "name": "that character's name"}
  ],
  "mission_update": {"status": "unchanged|progressed|completed|failed", "detail": "one sentence"},
  "is_endpoint": false
}
Offer 2 to 4 choices. List under "characters" only the CHARACTERS IN PLAY who actually appear in ` +
	`the scene; never invent ids. Set is_endpoint to true only when the story reaches a natural conclusion, ` +
	`and then return an empty choices array. Report mission_update honestly: "completed" or "failed" ` +
	`only when the scene itself confirms the outcome.`

// buildMessages renders the request into a system/user message pair shared by
// both backends.
func buildMessages(req models.GenerationRequest) (system string, user string) {
	var b strings.Builder

	if req.Story != nil {
		b.WriteString("STORY PARAMETERS:\n")
		fmt.Fprintf(&b, "Conflict: %s\n", req.Story.PrimaryConflict)
		fmt.Fprintf(&b, "Setting: %s\n", req.Story.Setting)
		fmt.Fprintf(&b, "Style: %s\n", req.Story.NarrativeStyle)
		fmt.Fprintf(&b, "Mood: %s\n", req.Story.Mood)
		b.WriteString("\n")
	}
	if req.Protagonist != nil && req.Protagonist.Name != "" {
		fmt.Fprintf(&b, "PROTAGONIST: %s", req.Protagonist.Name)
		if req.Protagonist.Gender != "" {
			fmt.Fprintf(&b, " (%s)", req.Protagonist.Gender)
		}
		b.WriteString("\n\n")
	}

	if len(req.Cast) > 0 {
		b.WriteString("CHARACTERS IN PLAY:\n")
		for _, c := range req.Cast {
			fmt.Fprintf(&b, "- %s | %s (%s)\n", c.ID, c.Name, c.Role)
		}
		b.WriteString("\n")
	}

	if req.Context != "" {
		b.WriteString(req.Context)
		b.WriteString("\n\n")
	}

	if req.OpeningScene {
		b.WriteString("Write the opening scene of this story.")
	} else {
		if len(req.RecentHistory) > 0 {
			b.WriteString("SCENES JUST PLAYED:\n")
			for _, narrative := range req.RecentHistory {
				fmt.Fprintf(&b, "- %s\n", narrative)
			}
			b.WriteString("\n")
		}
		if req.PreviousNarrative != "" {
			fmt.Fprintf(&b, "PREVIOUS SCENE:\n%s\n\n", req.PreviousNarrative)
		}
		fmt.Fprintf(&b, "THE PLAYER CHOSE: %s\n\n", req.ChosenChoice)
		fmt.Fprintf(&b, "Write scene %d, continuing directly from this choice.", req.NodeCount+1)
	}

	return systemPrompt, b.String()
}
