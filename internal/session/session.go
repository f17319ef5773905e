// Package session holds per-conversation state: the transcript, tunable
// settings, and the question-answering state machine. A session is idle or
// awaiting an answer; submitting a question moves it to awaiting, and input
// is rejected until the answer (or an error entry) arrives.
package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/docchat/docchat/internal/llm"
	"github.com/docchat/docchat/internal/memory"
)

// State of the question-answering state machine.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingAnswer State = "awaiting_answer"
)

var (
	// ErrBusy is returned when a question is submitted while a previous
	// one is still being answered.
	ErrBusy = errors.New("a question is already being answered")

	// ErrNotFound is returned by stores for unknown session IDs.
	ErrNotFound = errors.New("session not found")

	// ErrEmptyQuestion is returned for blank submissions.
	ErrEmptyQuestion = errors.New("question must not be empty")
)

// Message is one role-tagged transcript entry.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Settings are the per-session tunables. Temperature and MaxTokens shape
// model responses; ChunkSize applies to documents processed for this
// session.
type Settings struct {
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	ChunkSize   int     `json:"chunk_size"`
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	ChunkSize   *int     `json:"chunk_size,omitempty"`
}

// Session is a single conversation. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id        string
	createdAt time.Time

	state   State
	pending string

	documentID   string
	documentName string

	settings   Settings
	transcript []Message
	memory     *memory.Buffer
}

// New creates an idle session with the given defaults.
func New(id string, settings Settings, mem *memory.Buffer) *Session {
	return &Session{
		id:        id,
		createdAt: time.Now().UTC(),
		state:     StateIdle,
		settings:  settings,
		memory:    mem,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current machine state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Thinking reports whether an answer is being computed. True exactly
// between Submit and Resolve/ResolveError.
func (s *Session) Thinking() bool {
	return s.State() == StateAwaitingAnswer
}

// Submit records a user question and moves the session to awaiting-answer.
// Returns ErrBusy if a question is already pending.
func (s *Session) Submit(question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyQuestion
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrBusy
	}

	s.transcript = append(s.transcript, Message{
		Role:      llm.RoleUser,
		Content:   question,
		CreatedAt: time.Now().UTC(),
	})
	s.pending = question
	s.state = StateAwaitingAnswer
	return nil
}

// PendingQuestion returns the question awaiting an answer, if any.
func (s *Session) PendingQuestion() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.pending != ""
}

// Resolve records the answer for the pending question: the transcript gains
// an assistant entry, the exchange enters conversation memory, and the
// session returns to idle.
func (s *Session) Resolve(answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcript = append(s.transcript, Message{
		Role:      llm.RoleAssistant,
		Content:   answer,
		CreatedAt: time.Now().UTC(),
	})
	if s.pending != "" {
		s.memory.AddUser(s.pending)
		s.memory.AddAssistant(answer)
	}
	s.pending = ""
	s.state = StateIdle
}

// ResolveError converts a failure into an assistant transcript entry and
// returns the session to idle. The failed exchange is not added to
// conversation memory.
func (s *Session) ResolveError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcript = append(s.transcript, Message{
		Role:      llm.RoleAssistant,
		Content:   "Sorry, I encountered an error: " + err.Error(),
		CreatedAt: time.Now().UTC(),
	})
	s.pending = ""
	s.state = StateIdle
}

// Transcript returns a copy of all transcript entries in order.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// History returns the token-budgeted conversation memory for prompt
// building.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memory.Budgeted()
}

// Settings returns the current settings.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings applies a partial update and returns the result.
func (s *Session) UpdateSettings(patch SettingsPatch) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Temperature != nil {
		s.settings.Temperature = *patch.Temperature
	}
	if patch.MaxTokens != nil {
		s.settings.MaxTokens = *patch.MaxTokens
	}
	if patch.ChunkSize != nil {
		s.settings.ChunkSize = *patch.ChunkSize
	}
	return s.settings
}

// AttachDocument associates a document with the session. Returns true when
// the document name differs from the currently attached one, i.e. when the
// caller should (re)process the file. Re-attaching an unchanged name is a
// no-op.
func (s *Session) AttachDocument(id, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.documentName == name {
		return false
	}
	s.documentID = id
	s.documentName = name
	return true
}

// Document returns the attached document's ID and name.
func (s *Session) Document() (id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentID, s.documentName
}

// Clear discards the transcript and conversation memory. Settings and the
// attached document survive.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = nil
	s.memory.Clear()
}

// Snapshot is the serializable form of a session, used by the Redis store
// and the API layer.
type Snapshot struct {
	ID              string        `json:"id"`
	State           State         `json:"state"`
	PendingQuestion string        `json:"pending_question,omitempty"`
	DocumentID      string        `json:"document_id,omitempty"`
	DocumentName    string        `json:"document_name,omitempty"`
	Settings        Settings      `json:"settings"`
	Transcript      []Message     `json:"transcript"`
	History         []llm.Message `json:"history"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Snapshot captures the session state for serialization.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := make([]Message, len(s.transcript))
	copy(transcript, s.transcript)

	return Snapshot{
		ID:              s.id,
		State:           s.state,
		PendingQuestion: s.pending,
		DocumentID:      s.documentID,
		DocumentName:    s.documentName,
		Settings:        s.settings,
		Transcript:      transcript,
		History:         s.memory.Messages(),
		CreatedAt:       s.createdAt,
	}
}

// FromSnapshot rebuilds a session. mem must be a fresh buffer; the
// snapshot's history is replayed into it.
func FromSnapshot(snap Snapshot, mem *memory.Buffer) *Session {
	for _, m := range snap.History {
		mem.Add(m.Role, m.Content)
	}
	return &Session{
		id:           snap.ID,
		createdAt:    snap.CreatedAt,
		state:        snap.State,
		pending:      snap.PendingQuestion,
		documentID:   snap.DocumentID,
		documentName: snap.DocumentName,
		settings:     snap.Settings,
		transcript:   snap.Transcript,
		memory:       mem,
	}
}
