package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docchat/docchat/internal/session"
	"github.com/docchat/docchat/internal/storage"
)

// SessionView is the API representation of a chat session.
type SessionView struct {
	ID           string            `json:"id"`
	Thinking     bool              `json:"thinking"`
	DocumentID   string            `json:"document_id,omitempty"`
	DocumentName string            `json:"document_name,omitempty"`
	Settings     session.Settings  `json:"settings"`
	Messages     []session.Message `json:"messages"`
}

func sessionView(s *session.Session) SessionView {
	docID, docName := s.Document()
	return SessionView{
		ID:           s.ID(),
		Thinking:     s.Thinking(),
		DocumentID:   docID,
		DocumentName: docName,
		Settings:     s.Settings(),
		Messages:     s.Transcript(),
	}
}

func handleCreateSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings := session.Settings{
			Temperature: deps.Defaults.Temperature,
			MaxTokens:   deps.Defaults.MaxTokens,
			ChunkSize:   deps.Defaults.ChunkSize,
		}

		// The body is optional; when present it overrides defaults.
		if r.ContentLength != 0 {
			var patch session.SettingsPatch
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
				return
			}
			settings = applyPatch(settings, patch)
		}

		sess, err := deps.Sessions.Create(r.Context(), settings)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "creating session: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, sessionView(sess))
	}
}

func applyPatch(s session.Settings, patch session.SettingsPatch) session.Settings {
	if patch.Temperature != nil {
		s.Temperature = *patch.Temperature
	}
	if patch.MaxTokens != nil {
		s.MaxTokens = *patch.MaxTokens
	}
	if patch.ChunkSize != nil {
		s.ChunkSize = *patch.ChunkSize
	}
	return s
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sessionView(sess))
	}
}

type askRequest struct {
	Question string `json:"question"`
}

func handleAskQuestion(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}

		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		err := sess.Submit(req.Question)
		if errors.Is(err, session.ErrEmptyQuestion) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question must not be empty")
			return
		}
		if errors.Is(err, session.ErrBusy) {
			httpError(w, http.StatusConflict, "conflict", "an answer is already in progress")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "submitting question: %v", err)
			return
		}

		if err := deps.Answerer.Enqueue(sess.ID()); err != nil {
			// Resolve immediately so the session does not hang in the
			// awaiting state with no worker coming for it.
			sess.ResolveError(err)
			_ = deps.Sessions.Put(r.Context(), sess)
			httpError(w, http.StatusServiceUnavailable, "api_error", "answer queue unavailable: %v", err)
			return
		}

		if err := deps.Sessions.Put(r.Context(), sess); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving session: %v", err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "thinking"})
	}
}

func handleGetMessages(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}
		messages := sess.Transcript()
		if messages == nil {
			messages = []session.Message{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"messages": messages,
			"thinking": sess.Thinking(),
		})
	}
}

func handlePatchSettings(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}

		var patch session.SettingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		updated := sess.UpdateSettings(patch)
		if err := deps.Sessions.Put(r.Context(), sess); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving session: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func handleClearSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}
		sess.Clear()
		if err := deps.Sessions.Put(r.Context(), sess); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving session: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

type attachRequest struct {
	DocumentID string `json:"document_id"`
}

func handleAttachDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, r, deps)
		if !ok {
			return
		}

		var req attachRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		doc, err := deps.Store.GetDocument(req.DocumentID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "getting document: %v", err)
			return
		}
		if doc.Status == storage.DocStatusFailed {
			httpError(w, http.StatusConflict, "conflict", "document processing failed: %s", doc.Error)
			return
		}

		changed := sess.AttachDocument(doc.ID, doc.Name)
		if err := deps.Sessions.Put(r.Context(), sess); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving session: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"document_id": doc.ID,
			"changed":     changed,
		})
	}
}

func handleDeleteSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := deps.Sessions.Delete(r.Context(), id); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "deleting session: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func lookupSession(w http.ResponseWriter, r *http.Request, deps Deps) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := deps.Sessions.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "session not found")
		return nil, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "getting session: %v", err)
		return nil, false
	}
	return sess, true
}
