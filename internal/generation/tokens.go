package generation

import (
	"github.com/pkoukk/tiktoken-go"
)

// CountTokens estimates the token count of text for the given model. Falls
// back to a rough character heuristic when the model has no known encoding.
func CountTokens(model, text string) int {
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tke, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return len(text) / 4
		}
	}
	return len(tke.Encode(text, nil, nil))
}
