// Package memory provides an in-process retriever for tests and local runs.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/clararag/clara/embedding"
	"github.com/clararag/clara/retrieval"
)

// Store keeps chunks and their vectors in memory and searches them with
// cosine similarity. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	embedder embedding.Embedder
	chunks   []retrieval.Chunk
	vectors  [][]float32
}

func New(embedder embedding.Embedder) *Store {
	return &Store{embedder: embedder}
}

// Init implements retrieval.Indexer. Dimension is taken from the vectors.
func (s *Store) Init(ctx context.Context, dimension int) error {
	return nil
}

// Upsert implements retrieval.Indexer.
func (s *Store) Upsert(ctx context.Context, chunks []retrieval.Chunk, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range chunks {
		replaced := false
		for j := range s.chunks {
			if s.chunks[j].ChunkID == chunks[i].ChunkID {
				s.chunks[j] = chunks[i]
				s.vectors[j] = vectors[i]
				replaced = true
				break
			}
		}
		if !replaced {
			s.chunks = append(s.chunks, chunks[i])
			s.vectors = append(s.vectors, vectors[i])
		}
	}
	return nil
}

// DeleteDocument implements retrieval.Indexer.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keptChunks := s.chunks[:0]
	keptVectors := s.vectors[:0]
	for i := range s.chunks {
		if s.chunks[i].DocumentID != documentID {
			keptChunks = append(keptChunks, s.chunks[i])
			keptVectors = append(keptVectors, s.vectors[i])
		}
	}
	s.chunks = keptChunks
	s.vectors = keptVectors
	return nil
}

// Search implements retrieval.Retriever.
func (s *Store) Search(ctx context.Context, query string, topK int, minScore float64) ([]retrieval.Chunk, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]retrieval.Chunk, 0, len(s.chunks))
	for i := range s.chunks {
		score := cosineSimilarity(queryVec, s.vectors[i])
		if minScore > 0 && score < minScore {
			continue
		}
		ch := s.chunks[i]
		ch.Score = score
		results = append(results, ch)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
