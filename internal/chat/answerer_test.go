package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docchat/docchat/internal/chain"
	"github.com/docchat/docchat/internal/llm"
	"github.com/docchat/docchat/internal/session"
)

type stubAsker struct {
	answer string
	err    error

	question string
	history  []llm.Message
	opts     chain.Options
	calls    int
}

func (s *stubAsker) Ask(ctx context.Context, question string, history []llm.Message, opts chain.Options) (chain.Answer, error) {
	s.calls++
	s.question = question
	s.history = history
	s.opts = opts
	if s.err != nil {
		return chain.Answer{}, s.err
	}
	return chain.Answer{Text: s.answer}, nil
}

func newSubmittedSession(t *testing.T, store *session.MemoryStore, question string) *session.Session {
	t.Helper()
	sess, err := store.Create(context.Background(), session.Settings{
		Temperature: 0.7,
		MaxTokens:   1000,
		ChunkSize:   1000,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if question != "" {
		if err := sess.Submit(question); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	return sess
}

func TestAnswer_ResolvesPendingQuestion(t *testing.T) {
	store := session.NewMemoryStore("gpt-4o-mini", 3500)
	asker := &stubAsker{answer: "Paris is the capital of France."}
	a := NewAnswerer(store, asker, 4, 1)

	sess := newSubmittedSession(t, store, "What is the capital of France?")
	sess.AttachDocument("doc-1", "geography.pdf")

	a.answer(context.Background(), sess.ID())

	if sess.Thinking() {
		t.Error("session still thinking after answer")
	}
	transcript := sess.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(transcript))
	}
	if transcript[1].Role != "assistant" || transcript[1].Content != asker.answer {
		t.Errorf("assistant entry = %+v", transcript[1])
	}
	if len(sess.History()) != 2 {
		t.Errorf("history length = %d, want 2", len(sess.History()))
	}
	if asker.question != "What is the capital of France?" {
		t.Errorf("asked %q", asker.question)
	}
	if asker.opts.DocumentID != "doc-1" {
		t.Errorf("DocumentID = %q, want doc-1", asker.opts.DocumentID)
	}
	if asker.opts.Temperature != 0.7 || asker.opts.MaxTokens != 1000 || asker.opts.TopK != 4 {
		t.Errorf("opts = %+v", asker.opts)
	}
}

func TestAnswer_ErrorLandsInTranscriptNotMemory(t *testing.T) {
	store := session.NewMemoryStore("gpt-4o-mini", 3500)
	asker := &stubAsker{err: errors.New("model unavailable")}
	a := NewAnswerer(store, asker, 4, 1)

	sess := newSubmittedSession(t, store, "anything?")
	a.answer(context.Background(), sess.ID())

	transcript := sess.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(transcript))
	}
	want := "Sorry, I encountered an error: model unavailable"
	if transcript[1].Content != want {
		t.Errorf("error entry = %q, want %q", transcript[1].Content, want)
	}
	if len(sess.History()) != 0 {
		t.Error("failed exchange must not enter conversation memory")
	}
	if sess.Thinking() {
		t.Error("session still thinking after error")
	}
}

func TestAnswer_NoPendingQuestion(t *testing.T) {
	store := session.NewMemoryStore("gpt-4o-mini", 3500)
	asker := &stubAsker{answer: "unused"}
	a := NewAnswerer(store, asker, 4, 1)

	sess := newSubmittedSession(t, store, "")
	a.answer(context.Background(), sess.ID())

	if asker.calls != 0 {
		t.Errorf("asker called %d times for idle session", asker.calls)
	}
}

func TestAnswer_UnknownSession(t *testing.T) {
	store := session.NewMemoryStore("gpt-4o-mini", 3500)
	asker := &stubAsker{answer: "unused"}
	a := NewAnswerer(store, asker, 4, 1)

	a.answer(context.Background(), "no-such-session")

	if asker.calls != 0 {
		t.Errorf("asker called %d times for missing session", asker.calls)
	}
}

func TestRun_DrainsQueue(t *testing.T) {
	store := session.NewMemoryStore("gpt-4o-mini", 3500)
	asker := &stubAsker{answer: "42"}
	a := NewAnswerer(store, asker, 4, 2)

	sess := newSubmittedSession(t, store, "What is the answer?")
	if err := a.Enqueue(sess.ID()); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sess.Thinking() {
		select {
		case <-deadline:
			t.Fatal("question never answered")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if got := sess.Transcript()[1].Content; got != "42" {
		t.Errorf("answer = %q, want 42", got)
	}
}

func TestEnqueue_FullQueue(t *testing.T) {
	store := session.NewMemoryStore("gpt-4o-mini", 3500)
	a := NewAnswerer(store, &stubAsker{}, 4, 1)

	var err error
	for i := 0; i < cap(a.queue)+1; i++ {
		err = a.Enqueue("sess")
		if err != nil {
			break
		}
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
}
