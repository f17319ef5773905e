package llm

import (
	"github.com/pkoukk/tiktoken-go"
)

// Per-message wire overhead in the chat format.
const tokensPerMessage = 4

// CountTokens estimates the token count of a message list for the given
// model. Falls back to a characters/4 heuristic when no encoding is known
// for the model.
func CountTokens(model string, messages []Message) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc = nil
	}

	total := 0
	for _, m := range messages {
		total += tokensPerMessage
		total += countText(enc, m.Role)
		total += countText(enc, m.Content)
	}
	return total
}

// CountText estimates the token count of a single string.
func CountText(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc = nil
	}
	return countText(enc, text)
}

func countText(enc *tiktoken.Tiktoken, text string) int {
	if enc == nil {
		// Rough heuristic: one token per 4 characters.
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
