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

// fallbackQuestionText keeps the dialogue moving when the model yields
// nothing usable.
const fallbackQuestionText = "Could you specify what aspect of the document you mean?"

// ClarificationPlanner turns an ambiguity rationale into a small ordered
// set of clarifying questions. It always produces at least one question;
// a model failure degrades to a generic fallback, never to an error.
type ClarificationPlanner struct {
	client       llm.LLMClient
	maxQuestions int
	timeout      time.Duration
}

func NewClarificationPlanner(client llm.LLMClient, maxQuestions int, timeout time.Duration) *ClarificationPlanner {
	if maxQuestions <= 0 {
		maxQuestions = 3
	}
	return &ClarificationPlanner{
		client:       client,
		maxQuestions: maxQuestions,
		timeout:      timeout,
	}
}

// Plan generates 1..maxQuestions clarifying questions for a query the
// classifier flagged ambiguous.
func (p *ClarificationPlanner) Plan(ctx context.Context, queryText, rationale string) []ClarifyingQuestion {
	// Bounded like every other generation call; a hung backend degrades to
	// the fallback question instead of stalling the turn.
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	questions, err := async.Await(p.planTask(ctx, queryText, rationale))
	if err != nil {
		logger.Error("Clarification planning failed, using fallback question",
			zap.Error(err), zap.String("query", queryText))
		return p.fallback()
	}

	if len(questions) == 0 {
		logger.Error("Planner returned no usable questions, using fallback question",
			zap.String("query", queryText))
		return p.fallback()
	}

	return questions
}

func (p *ClarificationPlanner) planTask(ctx context.Context, queryText, rationale string) <-chan async.Result[[]ClarifyingQuestion] {
	return async.Go(func() ([]ClarifyingQuestion, error) {
		systemPrompt, userPrompt, err := prompts.RenderPlanPrompt(prompts.PlanPromptData{
			Query:        queryText,
			Rationale:    rationale,
			MaxQuestions: p.maxQuestions,
		})
		if err != nil {
			return nil, err
		}

		messages := []llm.Message{
			{Role: "user", Content: userPrompt},
		}

		var response strings.Builder
		err = p.client.GenerateInference(ctx, messages,
			func(chunk string) error {
				response.WriteString(chunk)
				return nil
			},
			llm.WithSystemPrompt(systemPrompt),
			llm.WithTemperature(0.5),
			llm.WithMaxTokens(1000),
		)
		if err != nil {
			return nil, err
		}

		return p.parsePlan(response.String())
	})
}

func (p *ClarificationPlanner) parsePlan(response string) ([]ClarifyingQuestion, error) {
	jsonStr, err := extractJSON(response)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Questions []struct {
			QuestionText     string   `json:"question_text"`
			SuggestedOptions []string `json:"suggested_options"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, err
	}

	questions := make([]ClarifyingQuestion, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		text := strings.TrimSpace(q.QuestionText)
		if text == "" {
			continue
		}
		questions = append(questions, ClarifyingQuestion{
			Text:             text,
			SuggestedOptions: q.SuggestedOptions,
			Rank:             len(questions) + 1,
		})
		if len(questions) == p.maxQuestions {
			break
		}
	}

	return questions, nil
}

func (p *ClarificationPlanner) fallback() []ClarifyingQuestion {
	return []ClarifyingQuestion{{Text: fallbackQuestionText, Rank: 1}}
}
