// Package clara implements the clarification-driven query resolution engine:
// ambiguity classification, a bounded clarification dialogue, query
// refinement, and evidence-grounded answer synthesis.
package clara

import (
	"time"

	"github.com/clararag/clara/retrieval"
)

// QueryRequest is one caller turn. A fresh query carries only Query; a
// clarification turn carries the SessionID returned earlier plus the
// user's answer to the pending question.
type QueryRequest struct {
	Query               string `json:"query"`
	SessionID           string `json:"session_id,omitempty"`
	ClarificationAnswer string `json:"clarification_answer,omitempty"`
}

// AmbiguityVerdict is the classifier's judgment of a query.
type AmbiguityVerdict struct {
	IsAmbiguous bool    `json:"is_ambiguous"`
	Rationale   string  `json:"reasoning"`
	Confidence  float64 `json:"confidence"`
}

// ClarifyingQuestion is one question the engine wants answered before it
// commits to retrieval. SuggestedOptions are advisory; the user may always
// answer with free text.
type ClarifyingQuestion struct {
	Text             string   `json:"text"`
	SuggestedOptions []string `json:"suggested_options,omitempty"`
	Rank             int      `json:"rank"`
}

// Answer is the synthesized result with its supporting evidence.
type Answer struct {
	Text       string            `json:"text"`
	Confidence float64           `json:"confidence"`
	Sources    []retrieval.Chunk `json:"sources,omitempty"`
	Clarified  bool              `json:"clarified"`
}

// ClarificationNeeded asks the caller to come back with an answer for the
// same session.
type ClarificationNeeded struct {
	SessionID string               `json:"session_id"`
	Questions []ClarifyingQuestion `json:"questions"`
	Rationale string               `json:"rationale,omitempty"`
}

// QueryResult is the engine's reply to one turn: exactly one of
// Clarification or Answer is set.
type QueryResult struct {
	Clarification *ClarificationNeeded `json:"clarification,omitempty"`
	Answer        *Answer              `json:"answer,omitempty"`
}

// NeedsClarification reports whether the dialogue is still open.
func (r *QueryResult) NeedsClarification() bool {
	return r.Clarification != nil
}

// Config is the engine's immutable configuration, injected at construction.
type Config struct {
	// EnableClarifications toggles the whole clarification path. When
	// false the classifier and planner are never invoked.
	EnableClarifications bool

	// MaxClarificationTurns bounds the dialogue; the budget forces
	// best-effort resolution.
	MaxClarificationTurns int

	// MaxClarificationQuestions caps questions returned per turn.
	MaxClarificationQuestions int

	// SimilarityThreshold is the minimum relevance for a chunk to count
	// as evidence.
	SimilarityThreshold float64

	// TopKDocuments is the retrieval fan-out per query.
	TopKDocuments int

	// MaxContextChunks bounds the chunks sent to generation.
	MaxContextChunks int

	// MaxContextChars bounds the total context size; lowest-relevance
	// chunks are dropped first when exceeded.
	MaxContextChars int

	// Port timeouts. A timeout surfaces as a retryable failure, never as
	// an empty answer.
	GenerationTimeout time.Duration
	RetrievalTimeout  time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		EnableClarifications:      true,
		MaxClarificationTurns:     2,
		MaxClarificationQuestions: 3,
		SimilarityThreshold:       0.7,
		TopKDocuments:             5,
		MaxContextChunks:          5,
		MaxContextChars:           12000,
		GenerationTimeout:         60 * time.Second,
		RetrievalTimeout:          15 * time.Second,
	}
}
