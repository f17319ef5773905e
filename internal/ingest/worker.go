package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/document"
	"github.com/docchat/docchat/internal/retrieval"
	"github.com/docchat/docchat/internal/storage"
)

// JobType identifies document processing jobs in the queue.
const JobType = "process_document"

// JobStore abstracts the job queue and document bookkeeping operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetDocument(id string) (storage.Document, error)
	MarkDocumentReady(id string, pages, chunkCount int) error
	MarkDocumentFailed(id, errMsg string) error
}

// BatchEmbedder generates embeddings for a batch of text chunks.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorInserter inserts records into the vector store.
type VectorInserter interface {
	Insert(records []retrieval.Record) error
}

// Payload is the JSON body of a process_document job.
type Payload struct {
	DocumentID   string `json:"document_id"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

// NewJob builds a queue job that will chunk, embed, and index the given
// document.
func NewJob(docID string, chunkSize, chunkOverlap int) (storage.Job, error) {
	payload, err := json.Marshal(Payload{
		DocumentID:   docID,
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	})
	if err != nil {
		return storage.Job{}, fmt.Errorf("encoding payload: %w", err)
	}
	return storage.Job{
		ID:          uuid.New().String(),
		Type:        JobType,
		PayloadJSON: string(payload),
		MaxAttempts: 3,
	}, nil
}

// Worker processes process_document jobs from the SQLite job queue.
type Worker struct {
	store    JobStore
	embedder BatchEmbedder
	vectors  VectorInserter
	poll     time.Duration
	logger   *slog.Logger

	// load is swapped out in tests to avoid real PDF fixtures.
	load func(path string) ([]document.Page, error)
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, embedder BatchEmbedder, vectors VectorInserter, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:    store,
		embedder: embedder,
		vectors:  vectors,
		poll:     pollInterval,
		logger:   slog.Default(),
		load:     document.Load,
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single process_document job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobType})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		// Once retries are exhausted the document itself is marked
		// failed so clients stop waiting on it. job.Attempts is the
		// count scanned at claim time, before FailJob increments it.
		if job.Attempts+1 >= job.MaxAttempts {
			var payload Payload
			if jsonErr := json.Unmarshal([]byte(job.PayloadJSON), &payload); jsonErr == nil {
				if markErr := w.store.MarkDocumentFailed(payload.DocumentID, err.Error()); markErr != nil {
					w.logger.Error("failed to mark document as failed", "document_id", payload.DocumentID, "error", markErr)
				}
			}
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload Payload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	doc, err := w.store.GetDocument(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", payload.DocumentID, err)
	}

	pages, err := w.load(doc.FilePath)
	if err != nil {
		return fmt.Errorf("extracting text from %s: %w", doc.Name, err)
	}

	splitter := document.NewSplitter(payload.ChunkSize, payload.ChunkOverlap)
	chunks := splitter.SplitPages(pages)
	if len(chunks) == 0 {
		return fmt.Errorf("document %s produced no chunks", doc.Name)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vecs, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	now := time.Now().UTC()
	records := make([]retrieval.Record, len(chunks))
	for i, c := range chunks {
		records[i] = retrieval.Record{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Page:       c.Page,
			ChunkIndex: c.Index,
			Text:       c.Text,
			Embedding:  vecs[i],
			CreatedAt:  now,
		}
	}

	if err := w.vectors.Insert(records); err != nil {
		return fmt.Errorf("inserting vectors: %w", err)
	}

	if err := w.store.MarkDocumentReady(doc.ID, len(pages), len(chunks)); err != nil {
		return fmt.Errorf("marking document ready: %w", err)
	}

	w.logger.Info("document processed",
		"document_id", doc.ID,
		"name", doc.Name,
		"pages", len(pages),
		"chunks", len(chunks))
	return nil
}
