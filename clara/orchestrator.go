package clara

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/linq"
	"github.com/clararag/clara/retrieval"
	"github.com/clararag/clara/session"
	"go.uber.org/zap"
)

// Engine orchestrates one query turn end to end. It holds no per-query
// state itself; everything a dialogue needs to survive between turns
// lives in the session store, so a single Engine is safe for concurrent
// callers.
type Engine struct {
	cfg         Config
	classifier  *AmbiguityClassifier
	planner     *ClarificationPlanner
	synthesizer *AnswerSynthesizer
	retriever   retrieval.Retriever
	sessions    session.Store
}

// ProcessQuery handles one turn of the dialogue. A fresh request (no
// SessionID) either resolves immediately or opens a clarification
// session; a follow-up request records the answer and either asks again
// or resolves. Retryable failures leave the session unchanged, so the
// caller may repeat the identical call.
func (e *Engine) ProcessQuery(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if req.SessionID != "" {
		return e.continueSession(ctx, req)
	}

	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	logger.Info("Processing query", zap.String("query", req.Query))

	if !e.cfg.EnableClarifications {
		return e.resolve(ctx, req.Query, nil, false)
	}

	verdict := e.classifier.Classify(ctx, req.Query, nil)
	if !verdict.IsAmbiguous {
		return e.resolve(ctx, req.Query, nil, false)
	}

	questions := e.planner.Plan(ctx, req.Query, verdict.Rationale)

	sess, err := e.sessions.Begin(ctx, req.Query, questionTexts(ctx, questions))
	if err != nil {
		return nil, fmt.Errorf("failed to open clarification session: %w", err)
	}

	logger.Info("Awaiting clarification",
		zap.String("sessionId", sess.ID),
		zap.Int("questions", len(questions)))

	return &QueryResult{
		Clarification: &ClarificationNeeded{
			SessionID: sess.ID,
			Questions: questions,
			Rationale: verdict.Rationale,
		},
	}, nil
}

// continueSession routes a follow-up turn by the session's current status.
// A resolved session is synthesized from its stored answers without
// recording anything, which is what makes retries after a transient
// failure idempotent.
func (e *Engine) continueSession(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	sess, err := e.sessions.Get(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, req.SessionID)
		}
		return nil, err
	}

	switch sess.Status {
	case session.StatusAbandoned:
		return nil, fmt.Errorf("%w: %s", ErrSessionAbandoned, sess.ID)
	case session.StatusResolved:
		return e.resolveSession(ctx, sess)
	}

	if strings.TrimSpace(req.ClarificationAnswer) == "" {
		return nil, ErrEmptyAnswer
	}

	question := ""
	if len(sess.PendingQuestions) > 0 {
		question = sess.PendingQuestions[0]
	}

	sess, err = e.sessions.RecordClarification(ctx, sess.ID, question, req.ClarificationAnswer)
	if err != nil {
		if errors.Is(err, session.ErrTerminalState) {
			// Lost a race with a concurrent turn or a retried call that
			// already landed. Route by whatever state won.
			return e.continueSession(ctx, QueryRequest{SessionID: req.SessionID})
		}
		return nil, err
	}

	logger.Info("Recorded clarification",
		zap.String("sessionId", sess.ID),
		zap.Int("turn", sess.TurnCount))

	if sess.Status == session.StatusResolved {
		// Turn budget exhausted; answer with what we have.
		return e.resolveSession(ctx, sess)
	}

	refined := RefineQuery(sess.OriginalQuery, sess.Answers())
	verdict := e.classifier.Classify(ctx, refined, sess.Answers())
	if verdict.IsAmbiguous {
		questions := e.planner.Plan(ctx, refined, verdict.Rationale)
		if _, err := e.sessions.SetPending(ctx, sess.ID, questionTexts(ctx, questions)); err != nil {
			return nil, err
		}
		return &QueryResult{
			Clarification: &ClarificationNeeded{
				SessionID: sess.ID,
				Questions: questions,
				Rationale: verdict.Rationale,
			},
		}, nil
	}

	sess, err = e.sessions.Resolve(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return e.resolveSession(ctx, sess)
}

// resolveSession answers from a session's accumulated clarifications. The
// session is re-read after synthesis so an Abandon that raced the
// generation call discards the answer instead of delivering it.
func (e *Engine) resolveSession(ctx context.Context, sess *session.Session) (*QueryResult, error) {
	result, err := e.resolve(ctx, RefineQuery(sess.OriginalQuery, sess.Answers()), sess.Answers(), sess.TurnCount > 0)
	if err != nil {
		return nil, err
	}

	current, err := e.sessions.Get(ctx, sess.ID)
	if err == nil && current.Status == session.StatusAbandoned {
		return nil, fmt.Errorf("%w: %s", ErrSessionAbandoned, sess.ID)
	}

	return result, nil
}

// resolve is the stateless retrieve-and-synthesize path.
func (e *Engine) resolve(ctx context.Context, refinedQuery string, clarifications []string, wasClarified bool) (*QueryResult, error) {
	rctx, cancel := context.WithTimeout(ctx, e.cfg.RetrievalTimeout)
	defer cancel()

	chunks, err := e.retriever.Search(rctx, refinedQuery, e.cfg.TopKDocuments, 0)
	if err != nil {
		if !errors.Is(err, retrieval.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", retrieval.ErrUnavailable, err)
		}
		return nil, err
	}

	answer, err := e.synthesizer.Synthesize(ctx, refinedQuery, clarifications, chunks, wasClarified)
	if err != nil {
		return nil, err
	}

	logger.Info("Query resolved",
		zap.Float64("confidence", answer.Confidence),
		zap.Int("sources", len(answer.Sources)),
		zap.Bool("clarified", answer.Clarified))

	return &QueryResult{Answer: answer}, nil
}

// AbandonSession cancels a clarification dialogue. Abandoning a session
// that is already terminal is not an error.
func (e *Engine) AbandonSession(ctx context.Context, sessionID string) error {
	_, err := e.sessions.Abandon(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return err
}

// GetSession exposes dialogue state for callers that render the pending
// questions themselves.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess, err
}

// Close releases the engine's session store resources.
func (e *Engine) Close() error {
	return e.sessions.Close()
}

func questionTexts(ctx context.Context, questions []ClarifyingQuestion) []string {
	texts, err := linq.Pipe2(
		linq.FromSlice(ctx, questions),

		linq.Select(func(q ClarifyingQuestion) string {
			return q.Text
		}),

		linq.ToSlice[string](),
	)

	if err != nil {
		texts = make([]string, 0, len(questions))
		for _, q := range questions {
			texts = append(texts, q.Text)
		}
	}
	return texts
}
