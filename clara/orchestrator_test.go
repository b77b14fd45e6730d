package clara

import (
	"context"
	"errors"
	"testing"

	"github.com/clararag/clara/llm"
	"github.com/clararag/clara/retrieval"
)

const (
	ambiguousVerdict   = `{"is_ambiguous": true, "reasoning": "multiple meanings", "confidence": 0.9}`
	unambiguousVerdict = `{"is_ambiguous": false, "reasoning": "clear", "confidence": 0.9}`
	onePlannedQuestion = `{"questions": [{"question_text": "Which kind of performance?", "suggested_options": ["system", "financial"]}]}`
	goodAnswer         = `{"answer": "The system performed well.", "confidence": 0.85, "reasoning": "good coverage"}`
)

func newTestEngine(t *testing.T, mini, big *mockLLMClient, retriever retrieval.Retriever, cfg Config) *Engine {
	t.Helper()

	engine, err := NewEngineBuilder().
		WithConfig(cfg).
		WithMiniModel(mini).
		WithBigModel(big).
		WithRetriever(retriever).
		Build()
	if err != nil {
		t.Fatalf("Failed to build engine: %v", err)
	}
	return engine
}

func relevantChunks() []retrieval.Chunk {
	return []retrieval.Chunk{
		evidenceChunk("a", 0.92),
		evidenceChunk("b", 0.81),
	}
}

func TestProcessQueryUnambiguousResolvesDirectly(t *testing.T) {
	mini := &mockLLMClient{responses: []string{unambiguousVerdict}}
	big := &mockLLMClient{responses: []string{goodAnswer}}
	engine := newTestEngine(t, mini, big, &mockRetriever{chunks: relevantChunks()}, DefaultConfig())

	result, err := engine.ProcessQuery(context.Background(), QueryRequest{Query: "What is this document about?"})
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}

	if result.NeedsClarification() {
		t.Fatal("Unambiguous query should resolve without clarification")
	}
	if result.Answer.Text != "The system performed well." {
		t.Errorf("Unexpected answer: %s", result.Answer.Text)
	}
	if result.Answer.Confidence <= 0 {
		t.Errorf("Answer with strong evidence should have positive confidence, got %f", result.Answer.Confidence)
	}
	if len(result.Answer.Sources) == 0 {
		t.Error("Answer should cite its sources")
	}
	if result.Answer.Clarified {
		t.Error("Answer without dialogue should not be marked clarified")
	}
}

func TestProcessQueryEmptyQuery(t *testing.T) {
	engine := newTestEngine(t, &mockLLMClient{}, &mockLLMClient{}, &mockRetriever{}, DefaultConfig())

	_, err := engine.ProcessQuery(context.Background(), QueryRequest{Query: "   "})
	if !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("Expected ErrEmptyQuery, got %v", err)
	}
}

func TestProcessQueryClarificationsDisabled(t *testing.T) {
	mini := &mockLLMClient{responses: []string{ambiguousVerdict}}
	big := &mockLLMClient{responses: []string{goodAnswer}}
	cfg := DefaultConfig()
	cfg.EnableClarifications = false
	engine := newTestEngine(t, mini, big, &mockRetriever{chunks: relevantChunks()}, cfg)

	result, err := engine.ProcessQuery(context.Background(), QueryRequest{Query: "What about performance?"})
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}

	if result.NeedsClarification() {
		t.Fatal("Disabled clarifications must never ask questions")
	}
	if mini.callCount != 0 {
		t.Errorf("Classifier model must not be invoked when disabled, got %d calls", mini.callCount)
	}
}

func TestProcessQueryAmbiguousOpensSession(t *testing.T) {
	mini := &mockLLMClient{responses: []string{ambiguousVerdict, onePlannedQuestion}}
	big := &mockLLMClient{}
	engine := newTestEngine(t, mini, big, &mockRetriever{chunks: relevantChunks()}, DefaultConfig())

	result, err := engine.ProcessQuery(context.Background(), QueryRequest{Query: "What about performance?"})
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}

	if !result.NeedsClarification() {
		t.Fatal("Ambiguous query should request clarification")
	}
	if result.Clarification.SessionID == "" {
		t.Error("Clarification must carry a session ID")
	}
	if len(result.Clarification.Questions) != 1 {
		t.Fatalf("Expected 1 question, got %d", len(result.Clarification.Questions))
	}
	if big.callCount != 0 {
		t.Errorf("No synthesis should happen while clarification is pending, got %d calls", big.callCount)
	}
}

func TestClarificationDialogueResolves(t *testing.T) {
	mini := &mockLLMClient{responses: []string{
		ambiguousVerdict,   // fresh query
		onePlannedQuestion, // plan
		unambiguousVerdict, // refined query after the answer
	}}
	big := &mockLLMClient{responses: []string{goodAnswer}}
	retriever := &mockRetriever{chunks: relevantChunks()}
	engine := newTestEngine(t, mini, big, retriever, DefaultConfig())

	ctx := context.Background()
	first, err := engine.ProcessQuery(ctx, QueryRequest{Query: "What about performance?"})
	if err != nil {
		t.Fatalf("First turn failed: %v", err)
	}

	second, err := engine.ProcessQuery(ctx, QueryRequest{
		SessionID:           first.Clarification.SessionID,
		ClarificationAnswer: "system performance",
	})
	if err != nil {
		t.Fatalf("Second turn failed: %v", err)
	}

	if second.NeedsClarification() {
		t.Fatal("Resolved dialogue should produce an answer")
	}
	if !second.Answer.Clarified {
		t.Error("Answer after clarification should be marked clarified")
	}
	if retriever.lastQuery != "What about performance?\nsystem performance" {
		t.Errorf("Retrieval should use the refined query, got %q", retriever.lastQuery)
	}
}

func TestClarificationStillAmbiguousAsksAgain(t *testing.T) {
	mini := &mockLLMClient{responses: []string{
		ambiguousVerdict,
		onePlannedQuestion,
		ambiguousVerdict, // still ambiguous after the first answer
		onePlannedQuestion,
	}}
	big := &mockLLMClient{}
	cfg := DefaultConfig()
	cfg.MaxClarificationTurns = 3
	engine := newTestEngine(t, mini, big, &mockRetriever{chunks: relevantChunks()}, cfg)

	ctx := context.Background()
	first, err := engine.ProcessQuery(ctx, QueryRequest{Query: "What about performance?"})
	if err != nil {
		t.Fatalf("First turn failed: %v", err)
	}

	second, err := engine.ProcessQuery(ctx, QueryRequest{
		SessionID:           first.Clarification.SessionID,
		ClarificationAnswer: "recent",
	})
	if err != nil {
		t.Fatalf("Second turn failed: %v", err)
	}

	if !second.NeedsClarification() {
		t.Fatal("Still-ambiguous dialogue should ask another question")
	}
	if second.Clarification.SessionID != first.Clarification.SessionID {
		t.Error("Follow-up questions must stay on the same session")
	}
}

func TestTurnBudgetForcesResolution(t *testing.T) {
	mini := &mockLLMClient{responses: []string{
		ambiguousVerdict,
		onePlannedQuestion,
		// Classifier would still say ambiguous, but the budget makes the
		// session resolve before it is consulted again.
		ambiguousVerdict,
	}}
	big := &mockLLMClient{responses: []string{goodAnswer}}
	cfg := DefaultConfig()
	cfg.MaxClarificationTurns = 1
	engine := newTestEngine(t, mini, big, &mockRetriever{chunks: relevantChunks()}, cfg)

	ctx := context.Background()
	first, err := engine.ProcessQuery(ctx, QueryRequest{Query: "What about performance?"})
	if err != nil {
		t.Fatalf("First turn failed: %v", err)
	}

	second, err := engine.ProcessQuery(ctx, QueryRequest{
		SessionID:           first.Clarification.SessionID,
		ClarificationAnswer: "system performance",
	})
	if err != nil {
		t.Fatalf("Second turn failed: %v", err)
	}

	if second.NeedsClarification() {
		t.Fatal("Exhausted turn budget must produce a best-effort answer")
	}
	if !second.Answer.Clarified {
		t.Error("Budget-forced answer should still count as clarified")
	}
}

func TestProcessQueryUnknownSession(t *testing.T) {
	engine := newTestEngine(t, &mockLLMClient{}, &mockLLMClient{}, &mockRetriever{}, DefaultConfig())

	_, err := engine.ProcessQuery(context.Background(), QueryRequest{
		SessionID:           "no-such-session",
		ClarificationAnswer: "answer",
	})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestProcessQueryEmptyClarificationAnswer(t *testing.T) {
	mini := &mockLLMClient{responses: []string{ambiguousVerdict, onePlannedQuestion}}
	engine := newTestEngine(t, mini, &mockLLMClient{}, &mockRetriever{chunks: relevantChunks()}, DefaultConfig())

	ctx := context.Background()
	first, err := engine.ProcessQuery(ctx, QueryRequest{Query: "What about performance?"})
	if err != nil {
		t.Fatalf("First turn failed: %v", err)
	}

	_, err = engine.ProcessQuery(ctx, QueryRequest{
		SessionID:           first.Clarification.SessionID,
		ClarificationAnswer: "  ",
	})
	if !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("Expected ErrEmptyAnswer, got %v", err)
	}

	// The rejected turn must not have consumed dialogue state.
	sess, err := engine.GetSession(ctx, first.Clarification.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess.TurnCount != 0 {
		t.Errorf("Rejected answer must not record a turn, got %d", sess.TurnCount)
	}
}

func TestAbandonedSessionRejectsFurtherTurns(t *testing.T) {
	mini := &mockLLMClient{responses: []string{ambiguousVerdict, onePlannedQuestion}}
	engine := newTestEngine(t, mini, &mockLLMClient{}, &mockRetriever{chunks: relevantChunks()}, DefaultConfig())

	ctx := context.Background()
	first, err := engine.ProcessQuery(ctx, QueryRequest{Query: "What about performance?"})
	if err != nil {
		t.Fatalf("First turn failed: %v", err)
	}

	if err := engine.AbandonSession(ctx, first.Clarification.SessionID); err != nil {
		t.Fatalf("AbandonSession failed: %v", err)
	}

	_, err = engine.ProcessQuery(ctx, QueryRequest{
		SessionID:           first.Clarification.SessionID,
		ClarificationAnswer: "answer",
	})
	if !errors.Is(err, ErrSessionAbandoned) {
		t.Fatalf("Expected ErrSessionAbandoned, got %v", err)
	}
}

func TestRetryAfterRetrievalFailureDoesNotDuplicateTurns(t *testing.T) {
	mini := &mockLLMClient{responses: []string{
		ambiguousVerdict,
		onePlannedQuestion,
		unambiguousVerdict,
	}}
	big := &mockLLMClient{responses: []string{goodAnswer}}
	retriever := &mockRetriever{
		chunks:  relevantChunks(),
		err:     retrieval.ErrUnavailable,
		errOnce: true,
	}
	engine := newTestEngine(t, mini, big, retriever, DefaultConfig())

	ctx := context.Background()
	first, err := engine.ProcessQuery(ctx, QueryRequest{Query: "What about performance?"})
	if err != nil {
		t.Fatalf("First turn failed: %v", err)
	}

	answerReq := QueryRequest{
		SessionID:           first.Clarification.SessionID,
		ClarificationAnswer: "system performance",
	}

	_, err = engine.ProcessQuery(ctx, answerReq)
	if err == nil {
		t.Fatal("Expected retrieval failure to surface")
	}
	if !IsRetryable(err) {
		t.Fatalf("Retrieval outage should be retryable, got %v", err)
	}

	// Identical retry. The turn recorded before the outage must not be
	// recorded again.
	result, err := engine.ProcessQuery(ctx, answerReq)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if result.NeedsClarification() {
		t.Fatal("Retry of a resolved session should produce an answer")
	}

	sess, err := engine.GetSession(ctx, first.Clarification.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess.TurnCount != 1 {
		t.Errorf("Retry must not duplicate the recorded turn, got %d turns", sess.TurnCount)
	}
}

func TestRetryAfterGenerationTimeout(t *testing.T) {
	mini := &mockLLMClient{responses: []string{
		ambiguousVerdict,
		onePlannedQuestion,
		unambiguousVerdict,
	}}
	big := &mockLLMClient{
		responses: []string{goodAnswer},
		err:       llm.ErrTimeout,
		errOnce:   true,
	}
	engine := newTestEngine(t, mini, big, &mockRetriever{chunks: relevantChunks()}, DefaultConfig())

	ctx := context.Background()
	first, err := engine.ProcessQuery(ctx, QueryRequest{Query: "What about performance?"})
	if err != nil {
		t.Fatalf("First turn failed: %v", err)
	}

	answerReq := QueryRequest{
		SessionID:           first.Clarification.SessionID,
		ClarificationAnswer: "system performance",
	}

	_, err = engine.ProcessQuery(ctx, answerReq)
	if !errors.Is(err, llm.ErrTimeout) {
		t.Fatalf("Expected generation timeout to surface, got %v", err)
	}

	result, err := engine.ProcessQuery(ctx, answerReq)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if result.NeedsClarification() {
		t.Fatal("Retry should synthesize from the stored answers")
	}

	sess, err := engine.GetSession(ctx, first.Clarification.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess.TurnCount != 1 {
		t.Errorf("Retry must not duplicate the recorded turn, got %d turns", sess.TurnCount)
	}
}

func TestProcessQueryNoEvidence(t *testing.T) {
	mini := &mockLLMClient{responses: []string{unambiguousVerdict}}
	big := &mockLLMClient{}
	engine := newTestEngine(t, mini, big, &mockRetriever{}, DefaultConfig())

	result, err := engine.ProcessQuery(context.Background(), QueryRequest{Query: "What is this document about?"})
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}

	if result.Answer.Confidence != 0 {
		t.Errorf("No evidence must yield confidence 0, got %f", result.Answer.Confidence)
	}
	if big.callCount != 0 {
		t.Errorf("No evidence must not invoke the generation model, got %d calls", big.callCount)
	}
}

func TestProcessQueryRetrievalUnavailable(t *testing.T) {
	mini := &mockLLMClient{responses: []string{unambiguousVerdict}}
	engine := newTestEngine(t, mini, &mockLLMClient{}, &mockRetriever{err: errors.New("dial tcp: refused")}, DefaultConfig())

	_, err := engine.ProcessQuery(context.Background(), QueryRequest{Query: "What is this document about?"})
	if !errors.Is(err, retrieval.ErrUnavailable) {
		t.Fatalf("Expected retrieval.ErrUnavailable, got %v", err)
	}
}
