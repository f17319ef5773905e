package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/document"
	"github.com/docchat/docchat/internal/ingest"
	"github.com/docchat/docchat/internal/storage"
)

const maxUploadSize = 50 << 20 // 50MB

// UploadResponse reports the stored document and whether a processing job
// was enqueued for it. Re-uploading a file whose name is already indexed
// returns the existing document with Reprocessed=false.
type UploadResponse struct {
	Document    storage.Document `json:"document"`
	Reprocessed bool             `json:"reprocessed"`
}

func handleUploadDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "missing file upload: %v", err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading upload: %v", err)
			return
		}
		if err := document.ValidatePDF(data); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		name := filepath.Base(header.Filename)
		if name == "." || name == string(filepath.Separator) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "upload has no filename")
			return
		}

		chunkSize := parseFormInt(r, "chunk_size", deps.Defaults.ChunkSize)
		if chunkSize < 500 {
			chunkSize = 500
		}
		if chunkSize > 2000 {
			chunkSize = 2000
		}

		existing, err := deps.Store.GetDocumentByName(name)
		switch {
		case err == nil && existing.Status != storage.DocStatusFailed:
			// Same file name means same document; skip reprocessing.
			writeJSON(w, http.StatusOK, UploadResponse{Document: existing, Reprocessed: false})
			return
		case err == nil:
			// A failed earlier attempt is replaced by the new upload.
			if deps.Vectors != nil {
				_ = deps.Vectors.DeleteByDocument(existing.ID)
			}
			removeDocumentFile(existing)
			if err := deps.Store.DeleteDocument(existing.ID); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "replacing failed document: %v", err)
				return
			}
		case !errors.Is(err, storage.ErrNotFound):
			httpError(w, http.StatusInternalServerError, "api_error", "looking up document: %v", err)
			return
		}

		docID := uuid.New().String()
		uploadDir := filepath.Join(deps.DataDir, "uploads")
		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "creating upload dir: %v", err)
			return
		}
		path := filepath.Join(uploadDir, docID+".pdf")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving upload: %v", err)
			return
		}

		now := time.Now().UTC()
		doc := storage.Document{
			ID:        docID,
			Name:      name,
			Size:      int64(len(data)),
			Status:    storage.DocStatusProcessing,
			FilePath:  path,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := deps.Store.SaveDocument(doc); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving document: %v", err)
			return
		}

		job, err := ingest.NewJob(docID, chunkSize, deps.Defaults.ChunkOverlap)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "creating job: %v", err)
			return
		}
		if err := deps.Store.EnqueueJob(job); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "enqueueing job: %v", err)
			return
		}

		writeJSON(w, http.StatusAccepted, UploadResponse{Document: doc, Reprocessed: true})
	}
}

func handleListDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		docs, err := deps.Store.ListDocuments(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing documents: %v", err)
			return
		}
		if docs == nil {
			docs = []storage.Document{}
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func handleGetDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, err := deps.Store.GetDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "getting document: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func handleDeleteDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, err := deps.Store.GetDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "getting document: %v", err)
			return
		}

		if deps.Vectors != nil {
			if err := deps.Vectors.DeleteByDocument(doc.ID); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "deleting vectors: %v", err)
				return
			}
		}
		removeDocumentFile(doc)

		if err := deps.Store.DeleteDocument(doc.ID); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "deleting document: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func removeDocumentFile(doc storage.Document) {
	if doc.FilePath != "" {
		_ = os.Remove(doc.FilePath)
	}
}

func parseFormInt(r *http.Request, key string, defaultVal int) int {
	s := r.FormValue(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}
