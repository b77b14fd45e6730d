package clara

import (
	"context"

	"github.com/clararag/clara/llm"
	"github.com/clararag/clara/retrieval"
)

// mock llm client for testing different LLM calls
type mockLLMClient struct {
	responses []string
	callCount int
	err       error
	errOnce   bool
	model     string
}

func (m *mockLLMClient) GetModel() string {
	return m.model
}

func (m *mockLLMClient) GenerateInference(
	ctx context.Context,
	messages []llm.Message,
	callback func(string) error,
	options ...llm.LLMOption,
) error {
	if m.err != nil {
		err := m.err
		if m.errOnce {
			m.err = nil
		}
		return err
	}

	if m.callCount < len(m.responses) {
		response := m.responses[m.callCount]
		m.callCount++
		return callback(response)
	}

	// Default response if we run out of responses
	m.callCount++
	return callback("Default response")
}

// blockingLLMClient never answers; it only returns once the context is done.
type blockingLLMClient struct{}

func (b *blockingLLMClient) GetModel() string { return "blocking-model" }

func (b *blockingLLMClient) GenerateInference(
	ctx context.Context,
	messages []llm.Message,
	callback func(string) error,
	options ...llm.LLMOption,
) error {
	<-ctx.Done()
	return ctx.Err()
}

// mock retriever returning canned chunks
type mockRetriever struct {
	chunks    []retrieval.Chunk
	err       error
	errOnce   bool
	callCount int
	lastQuery string
	lastTopK  int
}

func (m *mockRetriever) Search(ctx context.Context, query string, topK int, minScore float64) ([]retrieval.Chunk, error) {
	m.callCount++
	m.lastQuery = query
	m.lastTopK = topK

	if m.err != nil {
		err := m.err
		if m.errOnce {
			m.err = nil
		}
		return nil, err
	}

	out := make([]retrieval.Chunk, 0, len(m.chunks))
	for _, ch := range m.chunks {
		if minScore > 0 && ch.Score < minScore {
			continue
		}
		out = append(out, ch)
	}
	return out, nil
}

func evidenceChunk(id string, score float64) retrieval.Chunk {
	return retrieval.Chunk{
		DocumentID: "doc.txt",
		ChunkID:    id,
		Text:       "Chunk " + id + " text.",
		Score:      score,
	}
}
