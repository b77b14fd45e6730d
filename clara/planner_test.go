package clara

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPlanParsesQuestions(t *testing.T) {
	mock := &mockLLMClient{
		responses: []string{`{"questions": [
			{"question_text": "Which kind of performance?", "suggested_options": ["system", "financial"]},
			{"question_text": "Which time period?"}
		]}`},
	}

	planner := NewClarificationPlanner(mock, 3, time.Second)
	questions := planner.Plan(context.Background(), "What about performance?", "multiple meanings")

	if len(questions) != 2 {
		t.Fatalf("Expected 2 questions, got %d", len(questions))
	}
	if questions[0].Text != "Which kind of performance?" {
		t.Errorf("Unexpected first question: %s", questions[0].Text)
	}
	if len(questions[0].SuggestedOptions) != 2 {
		t.Errorf("Expected 2 suggested options, got %d", len(questions[0].SuggestedOptions))
	}
	if questions[0].Rank != 1 || questions[1].Rank != 2 {
		t.Errorf("Questions should be ranked in order, got %d and %d", questions[0].Rank, questions[1].Rank)
	}
}

func TestPlanCapsQuestionCount(t *testing.T) {
	mock := &mockLLMClient{
		responses: []string{`{"questions": [
			{"question_text": "Q1?"}, {"question_text": "Q2?"},
			{"question_text": "Q3?"}, {"question_text": "Q4?"}
		]}`},
	}

	planner := NewClarificationPlanner(mock, 2, time.Second)
	questions := planner.Plan(context.Background(), "query", "rationale")

	if len(questions) != 2 {
		t.Fatalf("Expected questions capped at 2, got %d", len(questions))
	}
}

func TestPlanSkipsBlankQuestions(t *testing.T) {
	mock := &mockLLMClient{
		responses: []string{`{"questions": [{"question_text": "   "}, {"question_text": "Real question?"}]}`},
	}

	planner := NewClarificationPlanner(mock, 3, time.Second)
	questions := planner.Plan(context.Background(), "query", "rationale")

	if len(questions) != 1 {
		t.Fatalf("Expected blank question skipped, got %d questions", len(questions))
	}
	if questions[0].Text != "Real question?" {
		t.Errorf("Unexpected question: %s", questions[0].Text)
	}
}

func TestPlanFallbackOnModelError(t *testing.T) {
	mock := &mockLLMClient{err: errors.New("connection refused")}

	planner := NewClarificationPlanner(mock, 3, time.Second)
	questions := planner.Plan(context.Background(), "query", "rationale")

	if len(questions) != 1 {
		t.Fatalf("Expected exactly one fallback question, got %d", len(questions))
	}
	if questions[0].Text != fallbackQuestionText {
		t.Errorf("Expected fallback question, got: %s", questions[0].Text)
	}
}

func TestPlanFallbackOnEmptyPlan(t *testing.T) {
	mock := &mockLLMClient{responses: []string{`{"questions": []}`}}

	planner := NewClarificationPlanner(mock, 3, time.Second)
	questions := planner.Plan(context.Background(), "query", "rationale")

	if len(questions) != 1 || questions[0].Text != fallbackQuestionText {
		t.Fatalf("Expected fallback question for empty plan, got %v", questions)
	}
}

func TestPlanTimesOutOnHungModel(t *testing.T) {
	planner := NewClarificationPlanner(&blockingLLMClient{}, 3, 20*time.Millisecond)

	done := make(chan []ClarifyingQuestion, 1)
	go func() {
		done <- planner.Plan(context.Background(), "query", "rationale")
	}()

	select {
	case questions := <-done:
		if len(questions) != 1 || questions[0].Text != fallbackQuestionText {
			t.Errorf("Expected fallback question after timeout, got %v", questions)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Plan did not return within the bounded timeout")
	}
}
