// Package chain implements the conversational retrieval flow: a follow-up
// question is condensed into a standalone one using the chat history, the
// most relevant document chunks are retrieved, and the chat model answers
// grounded on those chunks.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docchat/docchat/internal/llm"
	"github.com/docchat/docchat/internal/retrieval"
)

const condenseTimeout = 15 * time.Second

// ChatModel generates chat completions.
type ChatModel interface {
	Chat(ctx context.Context, messages []llm.Message, temperature float32, maxTokens int) (string, error)
}

// ChunkRetriever finds document chunks relevant to a query.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query string, topK int, docID string) ([]retrieval.ContextChunk, error)
}

// Options shape a single Ask call.
type Options struct {
	Temperature float32
	MaxTokens   int
	TopK        int
	DocumentID  string
}

// Answer is the result of one chain invocation.
type Answer struct {
	Text    string
	Sources []retrieval.ContextChunk
}

// Chain wires a retriever and a chat model into the conversational
// retrieval flow.
type Chain struct {
	model     ChatModel
	retriever ChunkRetriever
	prompts   *promptBuilder
	logger    *slog.Logger
}

// New creates a Chain. maxContextTokens bounds the retrieved context
// injected into the prompt (default 4000 if <= 0).
func New(model ChatModel, retriever ChunkRetriever, maxContextTokens int) *Chain {
	return &Chain{
		model:     model,
		retriever: retriever,
		prompts:   newPromptBuilder(maxContextTokens),
		logger:    slog.Default(),
	}
}

// Ask answers a question against the attached document.
//
// With a non-empty history the question is first condensed into a
// standalone one; condensation failures fall back to the raw question
// rather than failing the call. Retrieval or completion failures are
// returned to the caller, which renders them into the transcript.
func (c *Chain) Ask(ctx context.Context, question string, history []llm.Message, opts Options) (Answer, error) {
	if opts.TopK <= 0 {
		opts.TopK = 4
	}

	query := question
	if len(history) > 0 {
		query = c.condense(ctx, question, history)
	}

	chunks, err := c.retriever.Retrieve(ctx, query, opts.TopK, opts.DocumentID)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieving context: %w", err)
	}

	messages := c.prompts.build(question, chunks)
	text, err := c.model.Chat(ctx, messages, opts.Temperature, opts.MaxTokens)
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}

	return Answer{Text: strings.TrimSpace(text), Sources: chunks}, nil
}

// condense rewrites a follow-up question as a standalone question. On any
// failure the original question is used.
func (c *Chain) condense(ctx context.Context, question string, history []llm.Message) string {
	ctx, cancel := context.WithTimeout(ctx, condenseTimeout)
	defer cancel()

	rewritten, err := c.model.Chat(ctx, buildCondense(question, history), 0, 256)
	if err != nil {
		c.logger.Warn("condense failed, using original question", "error", err)
		return question
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return question
	}
	return rewritten
}
