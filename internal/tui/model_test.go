package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/docchat/docchat/internal/session"
)

type fakeBackend struct {
	asked    []string
	cleared  int
	messages []session.Message
	thinking bool
	askErr   error
}

func (f *fakeBackend) Ask(_ context.Context, _, question string) error {
	if f.askErr != nil {
		return f.askErr
	}
	f.asked = append(f.asked, question)
	return nil
}

func (f *fakeBackend) Messages(_ context.Context, _ string) ([]session.Message, bool, error) {
	return f.messages, f.thinking, nil
}

func (f *fakeBackend) Clear(_ context.Context, _ string) error {
	f.cleared++
	return nil
}

func pressEnter(m Model) (Model, tea.Cmd) {
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

func TestSubmitQuestion(t *testing.T) {
	backend := &fakeBackend{}
	m := NewModel(backend, "sess-1", "report.pdf")
	m.input.SetValue("What is the conclusion?")

	m, cmd := pressEnter(m)
	if !m.thinking {
		t.Error("model should be thinking after submit")
	}
	if m.input.Value() != "" {
		t.Error("input not cleared after submit")
	}
	if len(m.messages) != 1 || m.messages[0].Role != "user" {
		t.Fatalf("messages = %+v", m.messages)
	}
	if cmd == nil {
		t.Fatal("expected a command batch after submit")
	}
}

func TestSubmitIgnoredWhileThinking(t *testing.T) {
	backend := &fakeBackend{}
	m := NewModel(backend, "sess-1", "")
	m.thinking = true
	m.input.SetValue("second question")

	m, _ = pressEnter(m)
	if len(m.messages) != 0 {
		t.Error("question must not be accepted while thinking")
	}
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	backend := &fakeBackend{}
	m := NewModel(backend, "sess-1", "")
	m.input.SetValue("   ")

	m, _ = pressEnter(m)
	if m.thinking {
		t.Error("blank input must not start thinking")
	}
	if len(m.messages) != 0 {
		t.Errorf("messages = %+v", m.messages)
	}
}

func TestTranscriptArrivalStopsThinking(t *testing.T) {
	backend := &fakeBackend{}
	m := NewModel(backend, "sess-1", "")
	m.thinking = true

	msgs := []session.Message{
		{Role: "user", Content: "q", CreatedAt: time.Now()},
		{Role: "assistant", Content: "a", CreatedAt: time.Now()},
	}
	updated, _ := m.Update(transcriptMsg{messages: msgs, thinking: false})
	m = updated.(Model)

	if m.thinking {
		t.Error("thinking flag should clear when the answer arrives")
	}
	if len(m.messages) != 2 {
		t.Errorf("messages = %d, want 2", len(m.messages))
	}
	if !m.input.Focused() {
		t.Error("input should regain focus after the answer")
	}
}

func TestTranscriptStillThinkingKeepsPolling(t *testing.T) {
	backend := &fakeBackend{}
	m := NewModel(backend, "sess-1", "")
	m.thinking = true

	updated, cmd := m.Update(transcriptMsg{
		messages: []session.Message{{Role: "user", Content: "q"}},
		thinking: true,
	})
	m = updated.(Model)

	if !m.thinking {
		t.Error("thinking should persist while the daemon reports it")
	}
	if cmd == nil {
		t.Error("expected a poll command while thinking")
	}
}

func TestSubmitFailureRestoresInput(t *testing.T) {
	backend := &fakeBackend{askErr: errors.New("daemon unreachable")}
	m := NewModel(backend, "sess-1", "")
	m.thinking = true

	updated, _ := m.Update(submittedMsg{err: backend.askErr})
	m = updated.(Model)

	if m.thinking {
		t.Error("thinking should clear when the ask fails")
	}
	if !strings.Contains(m.status, "daemon unreachable") {
		t.Errorf("status = %q", m.status)
	}
}

func TestClearConversation(t *testing.T) {
	backend := &fakeBackend{}
	m := NewModel(backend, "sess-1", "")
	m.messages = []session.Message{{Role: "user", Content: "old"}}

	updated, _ := m.Update(clearedMsg{})
	m = updated.(Model)

	if len(m.messages) != 0 {
		t.Error("messages not cleared")
	}
	if !strings.Contains(m.status, "cleared") {
		t.Errorf("status = %q", m.status)
	}
}

func TestSampleKeyCyclesQuestions(t *testing.T) {
	backend := &fakeBackend{}
	m := NewModel(backend, "sess-1", "")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.input.Value() != sampleQuestions[0] {
		t.Errorf("input = %q, want first sample question", m.input.Value())
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.input.Value() != sampleQuestions[1] {
		t.Errorf("input = %q, want second sample question", m.input.Value())
	}

	for i := 0; i < len(sampleQuestions); i++ {
		updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m = updated.(Model)
	}
	if m.input.Value() != sampleQuestions[1] {
		t.Errorf("input = %q, cycle should wrap around", m.input.Value())
	}
}

func TestSampleKeyIgnoredWhileThinking(t *testing.T) {
	backend := &fakeBackend{}
	m := NewModel(backend, "sess-1", "")
	m.thinking = true

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.input.Value() != "" {
		t.Errorf("input = %q, want empty while thinking", m.input.Value())
	}
}

func TestEmptyGreetingListsSampleQuestions(t *testing.T) {
	out := emptyGreeting()
	for _, q := range sampleQuestions {
		if !strings.Contains(out, q) {
			t.Errorf("greeting missing %q", q)
		}
	}
}

func TestRenderTranscriptOrdersRoles(t *testing.T) {
	out := renderTranscript([]session.Message{
		{Role: "user", Content: "Where is chapter two?"},
		{Role: "assistant", Content: "Chapter two starts on page 14."},
	}, 80)

	youIdx := strings.Index(out, "You")
	assistantIdx := strings.Index(out, "Assistant")
	if youIdx == -1 || assistantIdx == -1 {
		t.Fatalf("labels missing in output:\n%s", out)
	}
	if youIdx > assistantIdx {
		t.Error("user message should precede assistant answer")
	}
	if !strings.Contains(out, "Where is chapter two?") {
		t.Error("user content missing")
	}
	if !strings.Contains(out, "page 14") {
		t.Error("assistant content missing")
	}
}

func TestViewShowsThinkingIndicator(t *testing.T) {
	backend := &fakeBackend{}
	m := NewModel(backend, "sess-1", "report.pdf")
	m.thinking = true

	view := m.View()
	if !strings.Contains(view, "Thinking...") {
		t.Error("view missing thinking indicator")
	}
	if !strings.Contains(view, "report.pdf") {
		t.Error("view missing document name in header")
	}
}
