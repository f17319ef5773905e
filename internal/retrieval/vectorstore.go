package retrieval

import (
	"time"
)

// VectorStore is the interface for chunk-vector storage and similarity
// search. The default implementation is SQLite with brute-force cosine
// similarity, which is comfortably fast at the scale of a handful of
// uploaded documents.
type VectorStore interface {
	// Insert adds chunk records.
	Insert(records []Record) error

	// Search returns the top-K records most similar to the query vector,
	// ordered by score descending. docID restricts the search to a single
	// document; pass "" to search everything.
	Search(vector []float32, topK int, docID string) ([]ScoredRecord, error)

	// DeleteByDocument removes every record belonging to a document.
	DeleteByDocument(docID string) error

	// CountByDocument returns the number of stored chunks for a document.
	CountByDocument(docID string) (int, error)

	// Count returns the total number of stored records.
	Count() (int, error)
}

// Record is one embedded document chunk.
type Record struct {
	ID         string
	DocumentID string
	Page       int
	ChunkIndex int
	Text       string
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredRecord is a Record with a similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
