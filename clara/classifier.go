package clara

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/clararag/clara/llm"
	"github.com/clararag/clara/prompts"
	"go.uber.org/zap"
)

// AmbiguityClassifier scores a query for whether it needs disambiguation
// before retrieval. It delegates the semantic judgment to the generation
// model and parses the structured verdict out of the response.
//
// The classifier fails open: any generation or parse failure yields a
// non-ambiguous verdict (with the failure logged) so the user is never
// blocked on a flaky model.
type AmbiguityClassifier struct {
	client  llm.LLMClient
	enabled bool
	timeout time.Duration
}

func NewAmbiguityClassifier(client llm.LLMClient, enabled bool, timeout time.Duration) *AmbiguityClassifier {
	return &AmbiguityClassifier{
		client:  client,
		enabled: enabled,
		timeout: timeout,
	}
}

// Classify judges the query together with any clarification answers from
// prior turns. When disabled it returns a constant non-ambiguous verdict
// without invoking the model.
func (c *AmbiguityClassifier) Classify(ctx context.Context, queryText string, priorAnswers []string) *AmbiguityVerdict {
	if !c.enabled {
		return &AmbiguityVerdict{IsAmbiguous: false, Rationale: "ambiguity detection disabled", Confidence: 1.0}
	}

	// A hung generation backend must not block the turn; it times out and
	// falls open like any other failure.
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	verdict, err := async.Await(c.classifyTask(ctx, queryText, priorAnswers))
	if err != nil {
		logger.Error("Ambiguity classification failed, treating query as unambiguous",
			zap.Error(err), zap.String("query", queryText))
		return &AmbiguityVerdict{IsAmbiguous: false, Rationale: "classification unavailable", Confidence: 0}
	}

	return verdict
}

func (c *AmbiguityClassifier) classifyTask(ctx context.Context, queryText string, priorAnswers []string) <-chan async.Result[*AmbiguityVerdict] {
	return async.Go(func() (*AmbiguityVerdict, error) {
		systemPrompt, userPrompt, err := prompts.RenderClassifyPrompt(prompts.ClassifyPromptData{
			Query:               queryText,
			PriorClarifications: priorAnswers,
		})
		if err != nil {
			return nil, err
		}

		messages := []llm.Message{
			{Role: "user", Content: userPrompt},
		}

		var response strings.Builder
		err = c.client.GenerateInference(ctx, messages,
			func(chunk string) error {
				response.WriteString(chunk)
				return nil
			},
			llm.WithSystemPrompt(systemPrompt),
			llm.WithTemperature(0.3),
			llm.WithMaxTokens(1000),
		)
		if err != nil {
			return nil, err
		}

		return parseAmbiguityVerdict(response.String())
	})
}

func parseAmbiguityVerdict(response string) (*AmbiguityVerdict, error) {
	jsonStr, err := extractJSON(response)
	if err != nil {
		return nil, err
	}

	verdict := &AmbiguityVerdict{}
	if err := json.Unmarshal([]byte(jsonStr), verdict); err != nil {
		return nil, err
	}

	verdict.Confidence = clamp01(verdict.Confidence)
	return verdict, nil
}
