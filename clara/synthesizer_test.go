package clara

import (
	"context"
	"strings"
	"testing"

	"github.com/clararag/clara/llm"
	"github.com/clararag/clara/retrieval"
)

func newTestSynthesizer(mock *mockLLMClient, cfg Config) *AnswerSynthesizer {
	return NewAnswerSynthesizer(mock, NewWeightedConfidence(), cfg)
}

func TestSynthesizeFiltersBelowThreshold(t *testing.T) {
	mock := &mockLLMClient{
		responses: []string{`{"answer": "The system performed well.", "confidence": 0.85, "reasoning": "good coverage"}`},
	}
	synth := newTestSynthesizer(mock, DefaultConfig())

	retrieved := []retrieval.Chunk{
		evidenceChunk("a", 0.92),
		evidenceChunk("b", 0.45),
		evidenceChunk("c", 0.71),
	}

	answer, err := synth.Synthesize(context.Background(), "query", nil, retrieved, false)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if len(answer.Sources) != 2 {
		t.Fatalf("Expected 2 sources above threshold, got %d", len(answer.Sources))
	}
	for _, src := range answer.Sources {
		if src.Score < 0.7 {
			t.Errorf("Source %s below threshold leaked into the answer (score %f)", src.ChunkID, src.Score)
		}
	}
	if answer.Text != "The system performed well." {
		t.Errorf("Unexpected answer text: %s", answer.Text)
	}
}

func TestSynthesizeInsufficientEvidenceSkipsModel(t *testing.T) {
	mock := &mockLLMClient{responses: []string{`{"answer": "should never be used"}`}}
	synth := newTestSynthesizer(mock, DefaultConfig())

	retrieved := []retrieval.Chunk{
		evidenceChunk("a", 0.3),
		evidenceChunk("b", 0.69),
	}

	answer, err := synth.Synthesize(context.Background(), "query", nil, retrieved, false)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if mock.callCount != 0 {
		t.Errorf("Generation model must not be invoked without evidence, got %d calls", mock.callCount)
	}
	if answer.Confidence != 0 {
		t.Errorf("Insufficient evidence answer must have confidence 0, got %f", answer.Confidence)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("Insufficient evidence answer must cite no sources, got %d", len(answer.Sources))
	}
	if !strings.Contains(answer.Text, "could not find enough relevant information") {
		t.Errorf("Unexpected insufficient evidence text: %s", answer.Text)
	}
}

func TestSynthesizeTruncatesToChunkBudget(t *testing.T) {
	mock := &mockLLMClient{
		responses: []string{`{"answer": "ok", "confidence": 0.8, "reasoning": "r"}`},
	}
	cfg := DefaultConfig()
	cfg.MaxContextChunks = 2
	synth := newTestSynthesizer(mock, cfg)

	retrieved := []retrieval.Chunk{
		evidenceChunk("low", 0.72),
		evidenceChunk("high", 0.95),
		evidenceChunk("mid", 0.85),
	}

	answer, err := synth.Synthesize(context.Background(), "query", nil, retrieved, false)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if len(answer.Sources) != 2 {
		t.Fatalf("Expected 2 sources after truncation, got %d", len(answer.Sources))
	}
	if answer.Sources[0].ChunkID != "high" || answer.Sources[1].ChunkID != "mid" {
		t.Errorf("Truncation should keep the highest relevance chunks, got %s and %s",
			answer.Sources[0].ChunkID, answer.Sources[1].ChunkID)
	}
}

func TestSynthesizeTruncatesToCharBudget(t *testing.T) {
	mock := &mockLLMClient{
		responses: []string{`{"answer": "ok", "confidence": 0.8, "reasoning": "r"}`},
	}
	cfg := DefaultConfig()
	cfg.MaxContextChars = 40
	synth := newTestSynthesizer(mock, cfg)

	big := evidenceChunk("big", 0.95)
	big.Text = strings.Repeat("x", 30)
	small := evidenceChunk("small", 0.80)
	small.Text = strings.Repeat("y", 30)

	answer, err := synth.Synthesize(context.Background(), "query", nil, []retrieval.Chunk{big, small}, false)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if len(answer.Sources) != 1 {
		t.Fatalf("Expected char budget to drop the lower relevance chunk, got %d sources", len(answer.Sources))
	}
	if answer.Sources[0].ChunkID != "big" {
		t.Errorf("Char budget should keep the highest relevance chunk, got %s", answer.Sources[0].ChunkID)
	}
}

func TestSynthesizeRawTextFallback(t *testing.T) {
	mock := &mockLLMClient{
		responses: []string{"Plain prose answer without any structure"},
	}
	synth := newTestSynthesizer(mock, DefaultConfig())

	answer, err := synth.Synthesize(context.Background(), "query", nil,
		[]retrieval.Chunk{evidenceChunk("a", 0.9)}, false)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if answer.Text != "Plain prose answer without any structure" {
		t.Errorf("Unstructured response should be used verbatim, got %q", answer.Text)
	}
	if answer.Confidence <= 0 {
		t.Errorf("Fallback answer should still score from evidence, got %f", answer.Confidence)
	}
}

func TestSynthesizePropagatesGenerationError(t *testing.T) {
	mock := &mockLLMClient{err: llm.ErrUnavailable}
	synth := newTestSynthesizer(mock, DefaultConfig())

	_, err := synth.Synthesize(context.Background(), "query", nil,
		[]retrieval.Chunk{evidenceChunk("a", 0.9)}, false)
	if err == nil {
		t.Fatal("Expected generation error to propagate")
	}
	if !IsRetryable(err) {
		t.Errorf("Generation unavailability should be retryable, got %v", err)
	}
}

func TestSynthesizeMarksClarified(t *testing.T) {
	mock := &mockLLMClient{
		responses: []string{`{"answer": "ok", "confidence": 0.8, "reasoning": "r"}`},
	}
	synth := newTestSynthesizer(mock, DefaultConfig())

	answer, err := synth.Synthesize(context.Background(), "query", []string{"system performance"},
		[]retrieval.Chunk{evidenceChunk("a", 0.9)}, true)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if !answer.Clarified {
		t.Error("Answer resolved through clarification should be marked clarified")
	}
}
