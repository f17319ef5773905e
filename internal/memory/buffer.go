// Package memory implements conversation buffer memory: the full exchange
// history is retained, and a token-budgeted view is produced for building
// model requests.
package memory

import (
	"github.com/docchat/docchat/internal/llm"
)

// Buffer accumulates role-tagged conversation messages. Not safe for
// concurrent use; the owning session serializes access.
type Buffer struct {
	model    string
	budget   int
	messages []llm.Message
}

// NewBuffer creates a Buffer. model is used for token counting; budget is
// the maximum token count returned by Budgeted (<= 0 means unlimited).
func NewBuffer(model string, budget int) *Buffer {
	return &Buffer{model: model, budget: budget}
}

// Add appends a message to the history.
func (b *Buffer) Add(role, content string) {
	b.messages = append(b.messages, llm.Message{Role: role, Content: content})
}

// AddUser appends a user message.
func (b *Buffer) AddUser(content string) { b.Add(llm.RoleUser, content) }

// AddAssistant appends an assistant message.
func (b *Buffer) AddAssistant(content string) { b.Add(llm.RoleAssistant, content) }

// Messages returns a copy of the full history.
func (b *Buffer) Messages() []llm.Message {
	out := make([]llm.Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Budgeted returns the most recent messages that fit the token budget,
// dropping oldest-first. The full history is never mutated.
func (b *Buffer) Budgeted() []llm.Message {
	msgs := b.Messages()
	if b.budget <= 0 {
		return msgs
	}
	for len(msgs) > 0 && llm.CountTokens(b.model, msgs) > b.budget {
		msgs = msgs[1:]
	}
	return msgs
}

// Len returns the number of stored messages.
func (b *Buffer) Len() int {
	return len(b.messages)
}

// Clear discards the history.
func (b *Buffer) Clear() {
	b.messages = nil
}
