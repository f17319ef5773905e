package chain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/docchat/docchat/internal/llm"
	"github.com/docchat/docchat/internal/retrieval"
)

const defaultMaxContextTokens = 4000

const answerSystemPrompt = `You are a helpful assistant answering questions about an uploaded PDF document.
Use only the document excerpts below to answer. If the excerpts do not contain
the answer, say so instead of guessing.`

const condenseSystemPrompt = `Given the following conversation and a follow-up question, rephrase the
follow-up question to be a standalone question that can be understood without
the conversation. Return only the rephrased question.`

// promptBuilder assembles the messages sent to the chat model: a system
// message carrying the retrieved document excerpts, followed by the user's
// question.
type promptBuilder struct {
	maxContextTokens int
}

func newPromptBuilder(maxContextTokens int) *promptBuilder {
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &promptBuilder{maxContextTokens: maxContextTokens}
}

// build produces the answer-generation messages. chunks are injected
// highest-score first under the token budget; lower-scoring chunks are
// dropped when the budget runs out.
func (p *promptBuilder) build(question string, chunks []retrieval.ContextChunk) []llm.Message {
	var sb strings.Builder
	sb.WriteString(answerSystemPrompt)

	if len(chunks) > 0 {
		sorted := make([]retrieval.ContextChunk, len(chunks))
		copy(sorted, chunks)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Score > sorted[j].Score
		})

		header := "\n\n[Document Excerpts]\n"
		remaining := p.maxContextTokens - estimateTokens(sb.String()) - estimateTokens(header)

		var selected []string
		for _, ch := range sorted {
			entry := formatChunk(ch)
			tokens := estimateTokens(entry)
			if tokens > remaining {
				continue
			}
			selected = append(selected, entry)
			remaining -= tokens
		}

		if len(selected) > 0 {
			sb.WriteString(header)
			for _, entry := range selected {
				sb.WriteString(entry)
			}
		}
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: sb.String()},
		{Role: llm.RoleUser, Content: question},
	}
}

// buildCondense produces the messages asking the model to rewrite a
// follow-up question as a standalone one.
func buildCondense(question string, history []llm.Message) []llm.Message {
	var sb strings.Builder
	sb.WriteString("Conversation:\n")
	for _, m := range history {
		sb.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
	}
	sb.WriteString("\nFollow-up question: ")
	sb.WriteString(question)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: condenseSystemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}
}

func formatChunk(ch retrieval.ContextChunk) string {
	return fmt.Sprintf("(Score: %.2f, Page: %d)\n%s\n\n", ch.Score, ch.Page, ch.Text)
}

// estimateTokens provides a rough token count using 4 chars per token heuristic.
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}
