// Package retrieval defines the retrieval boundary of the engine.
// The core depends on these abstractions; adapters implement them.
package retrieval

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the retrieval backend failed. Retryable by the caller.
var ErrUnavailable = errors.New("retrieval unavailable")

// Chunk is a retrieved piece of a document with its relevance score.
// The score is comparable within one Search call but not calibrated
// across calls; the core only orders and threshold-compares it.
type Chunk struct {
	DocumentID string            `json:"document_id"`
	ChunkID    string            `json:"chunk_id"`
	Text       string            `json:"text"`
	Index      int               `json:"index"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Score      float64           `json:"score"`
}

// Retriever answers a query string with ranked chunks.
type Retriever interface {
	// Search returns up to topK chunks ordered by descending relevance,
	// dropping chunks scoring below minScore.
	Search(ctx context.Context, query string, topK int, minScore float64) ([]Chunk, error)
}

// Indexer ingests chunks into the index. Implemented by the same adapters
// that implement Retriever so ingestion and retrieval share one backend.
type Indexer interface {
	// Init prepares the index for vectors of the given dimension.
	Init(ctx context.Context, dimension int) error

	// Upsert stores chunks with their embedding vectors.
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error

	// DeleteDocument removes all chunks belonging to a document.
	DeleteDocument(ctx context.Context, documentID string) error
}
