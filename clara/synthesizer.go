package clara

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/ds"
	"github.com/clararag/clara/llm"
	"github.com/clararag/clara/prompts"
	"github.com/clararag/clara/retrieval"
	"go.uber.org/zap"
)

// insufficientEvidenceText is the defined successful answer for "no
// evidence", distinct from a system failure.
const insufficientEvidenceText = "I could not find enough relevant information in the indexed documents to answer this question. Try rephrasing the question or indexing more documents."

// AnswerSynthesizer fuses retrieved evidence into a confidence-scored
// answer. Chunks below the similarity threshold never reach the model,
// and with zero chunks above it the model is not invoked at all.
type AnswerSynthesizer struct {
	client     llm.LLMClient
	confidence ConfidenceStrategy
	cfg        Config
}

func NewAnswerSynthesizer(client llm.LLMClient, confidence ConfidenceStrategy, cfg Config) *AnswerSynthesizer {
	return &AnswerSynthesizer{
		client:     client,
		confidence: confidence,
		cfg:        cfg,
	}
}

// Synthesize produces the final answer for a refined query. A generation
// failure is returned as a retryable error rather than a fabricated answer.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, refinedQuery string, clarifications []string, retrieved []retrieval.Chunk, wasClarified bool) (*Answer, error) {
	evidence := make([]retrieval.Chunk, 0, len(retrieved))
	for _, ch := range retrieved {
		if ch.Score >= s.cfg.SimilarityThreshold {
			evidence = append(evidence, ch)
		}
	}

	if len(evidence) == 0 {
		return &Answer{
			Text:       insufficientEvidenceText,
			Confidence: 0,
			Clarified:  wasClarified,
		}, nil
	}

	evidence = s.selectContext(evidence)

	systemPrompt, userPrompt, err := prompts.RenderSynthesisPrompt(prompts.SynthesisPromptData{
		Query:          refinedQuery,
		Clarifications: clarifications,
		Context:        formatContext(evidence),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render synthesis prompt: %w", err)
	}

	messages := []llm.Message{
		{Role: "user", Content: userPrompt},
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	var response strings.Builder
	err = s.client.GenerateInference(gctx, messages,
		func(chunk string) error {
			response.WriteString(chunk)
			return nil
		},
		llm.WithSystemPrompt(systemPrompt),
		llm.WithTemperature(0.7),
		llm.WithMaxTokens(2000),
	)
	if err != nil {
		return nil, err
	}

	text, selfReported, hasSelfReport := parseSynthesis(response.String())

	answer := &Answer{
		Text:       text,
		Confidence: s.confidence.Score(evidence[0].Score, len(evidence), selfReported, hasSelfReport),
		Sources:    evidence,
		Clarified:  wasClarified,
	}
	return answer, nil
}

// selectContext keeps the highest-relevance chunks within the configured
// chunk and character budgets, dropping the least relevant first.
func (s *AnswerSynthesizer) selectContext(evidence []retrieval.Chunk) []retrieval.Chunk {
	h := ds.NewMinHeap(func(a, b retrieval.Chunk) bool { return a.Score < b.Score })
	for _, ch := range evidence {
		h.Push(ch)
		if s.cfg.MaxContextChunks > 0 && h.Len() > s.cfg.MaxContextChunks {
			h.Pop()
		}
	}

	kept := h.ToSortedSlice()
	slices.Reverse(kept) // highest relevance first

	if s.cfg.MaxContextChars <= 0 {
		return kept
	}

	total := 0
	for i, ch := range kept {
		total += len(ch.Text)
		if total > s.cfg.MaxContextChars && i > 0 {
			return kept[:i]
		}
	}
	return kept
}

func formatContext(evidence []retrieval.Chunk) string {
	var sb strings.Builder
	for i, ch := range evidence {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Document %d] (Relevance: %.2f)\n%s", i+1, ch.Score, ch.Text)
	}
	return sb.String()
}

// parseSynthesis extracts the structured answer; a malformed response
// degrades to the raw text with no self-reported confidence.
func parseSynthesis(response string) (text string, selfReported float64, hasSelfReport bool) {
	jsonStr, err := extractJSON(response)
	if err != nil {
		logger.Error("Synthesis response was not structured, using raw text", zap.Error(err))
		return response, 0, false
	}

	var parsed struct {
		Answer     string  `json:"answer"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		logger.Error("Failed to parse synthesis response, using raw text", zap.Error(err))
		return response, 0, false
	}

	if parsed.Answer == "" {
		return response, 0, false
	}

	return parsed.Answer, clamp01(parsed.Confidence), true
}
