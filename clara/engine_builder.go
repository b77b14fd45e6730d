package clara

import (
	"fmt"

	"github.com/clararag/clara/llm"
	"github.com/clararag/clara/retrieval"
	"github.com/clararag/clara/session"
)

// EngineBuilder assembles an Engine. MiniModel drives classification and
// planning; BigModel drives answer synthesis. Only BigModel and a
// Retriever are mandatory.
type EngineBuilder struct {
	cfg        Config
	miniModel  llm.LLMClient
	bigModel   llm.LLMClient
	retriever  retrieval.Retriever
	sessions   session.Store
	confidence ConfidenceStrategy
}

func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{cfg: DefaultConfig()}
}

func (b *EngineBuilder) WithConfig(cfg Config) *EngineBuilder {
	b.cfg = cfg
	return b
}

func (b *EngineBuilder) WithMiniModel(client llm.LLMClient) *EngineBuilder {
	b.miniModel = client
	return b
}

func (b *EngineBuilder) WithBigModel(client llm.LLMClient) *EngineBuilder {
	b.bigModel = client
	return b
}

func (b *EngineBuilder) WithRetriever(r retrieval.Retriever) *EngineBuilder {
	b.retriever = r
	return b
}

func (b *EngineBuilder) WithSessionStore(store session.Store) *EngineBuilder {
	b.sessions = store
	return b
}

func (b *EngineBuilder) WithConfidenceStrategy(strategy ConfidenceStrategy) *EngineBuilder {
	b.confidence = strategy
	return b
}

func (b *EngineBuilder) Build() (*Engine, error) {
	if b.bigModel == nil {
		return nil, fmt.Errorf("a generation model is required")
	}
	if b.retriever == nil {
		return nil, fmt.Errorf("a retriever is required")
	}

	if b.miniModel == nil {
		b.miniModel = b.bigModel
	}
	if b.confidence == nil {
		b.confidence = NewWeightedConfidence()
	}
	if b.sessions == nil {
		store, err := session.NewStore(session.StoreTypeMemory,
			session.WithMaxTurns(b.cfg.MaxClarificationTurns))
		if err != nil {
			return nil, err
		}
		b.sessions = store
	}

	return &Engine{
		cfg:         b.cfg,
		classifier:  NewAmbiguityClassifier(b.miniModel, b.cfg.EnableClarifications, b.cfg.GenerationTimeout),
		planner:     NewClarificationPlanner(b.miniModel, b.cfg.MaxClarificationQuestions, b.cfg.GenerationTimeout),
		synthesizer: NewAnswerSynthesizer(b.bigModel, b.confidence, b.cfg),
		retriever:   b.retriever,
		sessions:    b.sessions,
	}, nil
}
