package session

import "time"

// Status is the lifecycle state of a clarification dialogue.
type Status string

const (
	StatusAwaitingClarification Status = "awaiting_clarification"
	StatusResolved              Status = "resolved"
	StatusAbandoned             Status = "abandoned"
)

// ClarificationTurn is one answered round of the dialogue.
type ClarificationTurn struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Session is all serializable state of one clarification dialogue.
// It is created on the first ambiguous query and mutated only through
// Store transitions.
type Session struct {
	ID               string              `json:"id"`
	OriginalQuery    string              `json:"original_query"`
	PendingQuestions []string            `json:"pending_questions,omitempty"`
	Turns            []ClarificationTurn `json:"turns,omitempty"`
	TurnCount        int                 `json:"turn_count"`
	Status           Status              `json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Version          int64               `json:"version"` // Monotonically increasing for optimistic locking
}

// Answers returns the recorded clarification answers in turn order.
func (s *Session) Answers() []string {
	answers := make([]string, 0, len(s.Turns))
	for _, t := range s.Turns {
		answers = append(answers, t.Answer)
	}
	return answers
}

// applyClarification records one answered turn and advances the state
// machine. Exhausting the turn budget forces StatusResolved regardless of
// remaining ambiguity. Shared by all drivers so the transition rules live
// in one place.
func applyClarification(s *Session, question, answer string, maxTurns int) {
	s.Turns = append(s.Turns, ClarificationTurn{
		Question:   question,
		Answer:     answer,
		AnsweredAt: time.Now(),
	})
	s.TurnCount++
	s.PendingQuestions = nil

	if maxTurns > 0 && s.TurnCount >= maxTurns {
		s.Status = StatusResolved
	}
}
