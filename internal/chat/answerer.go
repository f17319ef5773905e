package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/docchat/docchat/internal/chain"
	"github.com/docchat/docchat/internal/llm"
	"github.com/docchat/docchat/internal/session"
)

// ErrQueueFull is returned by Enqueue when too many questions are already
// waiting for answers.
var ErrQueueFull = errors.New("answer queue is full")

// Asker runs one conversational retrieval invocation.
type Asker interface {
	Ask(ctx context.Context, question string, history []llm.Message, opts chain.Options) (chain.Answer, error)
}

// Answerer drains submitted questions in the background. A session that has
// accepted a question stays in the awaiting state until the answerer resolves
// it, so clients can poll the transcript while the model works.
type Answerer struct {
	sessions session.Store
	chain    Asker
	topK     int
	timeout  time.Duration
	workers  int
	queue    chan string
	logger   *slog.Logger
}

// NewAnswerer creates an Answerer backed by the given session store and chain.
// topK bounds retrieval per question; workers bounds concurrent model calls.
func NewAnswerer(sessions session.Store, asker Asker, topK, workers int) *Answerer {
	if topK <= 0 {
		topK = 4
	}
	if workers <= 0 {
		workers = 4
	}
	return &Answerer{
		sessions: sessions,
		chain:    asker,
		topK:     topK,
		timeout:  90 * time.Second,
		workers:  workers,
		queue:    make(chan string, 64),
		logger:   slog.Default(),
	}
}

// Enqueue schedules the session's pending question for answering.
func (a *Answerer) Enqueue(sessionID string) error {
	select {
	case a.queue <- sessionID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run answers queued questions until ctx is cancelled.
func (a *Answerer) Run(ctx context.Context) {
	p := pool.New().WithMaxGoroutines(a.workers)
	for {
		select {
		case <-ctx.Done():
			p.Wait()
			return
		case id := <-a.queue:
			p.Go(func() {
				a.answer(ctx, id)
			})
		}
	}
}

func (a *Answerer) answer(ctx context.Context, sessionID string) {
	sess, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		a.logger.Error("session lookup failed", "session_id", sessionID, "error", err)
		return
	}

	question, ok := sess.PendingQuestion()
	if !ok {
		return
	}

	docID, _ := sess.Document()
	settings := sess.Settings()
	history := sess.History()

	askCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ans, err := a.chain.Ask(askCtx, question, history, chain.Options{
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
		TopK:        a.topK,
		DocumentID:  docID,
	})
	if err != nil {
		a.logger.Warn("answer failed", "session_id", sessionID, "error", err)
		sess.ResolveError(err)
	} else {
		sess.Resolve(ans.Text)
	}

	if err := a.sessions.Put(ctx, sess); err != nil {
		a.logger.Error("session save failed", "session_id", sessionID, "error", err)
	}
}
