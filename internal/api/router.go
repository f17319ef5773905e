package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docchat/docchat/internal/session"
	"github.com/docchat/docchat/internal/storage"
)

// Enqueuer schedules a session's pending question for background answering.
type Enqueuer interface {
	Enqueue(sessionID string) error
}

// VectorCleaner removes a document's vectors when the document goes away.
type VectorCleaner interface {
	DeleteByDocument(documentID string) error
}

// Defaults seed newly created sessions and uploads.
type Defaults struct {
	Temperature  float32
	MaxTokens    int
	ChunkSize    int
	ChunkOverlap int
}

// Deps carries everything the HTTP handlers need.
type Deps struct {
	Store    *storage.Store
	Sessions session.Store
	Answerer Enqueuer
	Vectors  VectorCleaner // optional; if nil, vector cleanup is skipped on delete
	DataDir  string
	Token    string
	Defaults Defaults
}

// NewHandler returns the daemon's REST API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/documents", handleUploadDocument(deps))
		r.Get("/documents", handleListDocuments(deps))
		r.Get("/documents/{id}", handleGetDocument(deps))
		r.Delete("/documents/{id}", handleDeleteDocument(deps))

		r.Post("/sessions", handleCreateSession(deps))
		r.Get("/sessions/{id}", handleGetSession(deps))
		r.Delete("/sessions/{id}", handleDeleteSession(deps))
		r.Post("/sessions/{id}/messages", handleAskQuestion(deps))
		r.Get("/sessions/{id}/messages", handleGetMessages(deps))
		r.Patch("/sessions/{id}/settings", handlePatchSettings(deps))
		r.Post("/sessions/{id}/clear", handleClearSession(deps))
		r.Post("/sessions/{id}/document", handleAttachDocument(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
