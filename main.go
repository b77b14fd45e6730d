package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/SaiNageswarS/go-api-boot/config"
	"github.com/SaiNageswarS/go-api-boot/dotenv"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/clararag/clara/appconfig"
	"github.com/clararag/clara/clara"
	"github.com/clararag/clara/embedding"
	"github.com/clararag/clara/ingest"
	"github.com/clararag/clara/llm"
	"github.com/clararag/clara/retrieval"
	"github.com/clararag/clara/retrieval/memory"
	"github.com/clararag/clara/retrieval/qdrant"
	"github.com/clararag/clara/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	dotenv.LoadEnv()

	ccfg := &appconfig.AppConfig{}
	err := config.LoadConfig("config.ini", ccfg)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	miniModel, bigModel := provideModels(ccfg)
	embedder := provideEmbedder(ccfg)
	retriever, indexer := provideRetrieval(ccfg, embedder)

	engineCfg := engineConfig(ccfg)

	builder := clara.NewEngineBuilder().
		WithConfig(engineCfg).
		WithMiniModel(miniModel).
		WithBigModel(bigModel).
		WithRetriever(retriever)

	if ccfg.RedisAddr != "" {
		store, err := session.NewStore(session.StoreTypeRedis,
			session.WithRedisClient(redis.NewClient(&redis.Options{Addr: ccfg.RedisAddr})),
			session.WithMaxTurns(engineCfg.MaxClarificationTurns))
		if err != nil {
			logger.Fatal("Failed to create session store", zap.Error(err))
		}
		builder = builder.WithSessionStore(store)
	}

	engine, err := builder.Build()
	if err != nil {
		logger.Fatal("Failed to build engine", zap.Error(err))
	}
	defer engine.Close()

	if ccfg.DocumentsDir != "" && indexer != nil {
		ingestor := ingest.NewIngestor(indexer, embedder, nil)
		if _, err := ingestor.IngestDir(ctx, ccfg.DocumentsDir); err != nil {
			logger.Fatal("Failed to index documents", zap.Error(err))
		}

		watcher, err := ingest.NewWatcher(ingestor)
		if err != nil {
			logger.Fatal("Failed to create watcher", zap.Error(err))
		}
		defer watcher.Close()
		go func() { _ = watcher.Watch(ctx, ccfg.DocumentsDir) }()
	}

	runREPL(ctx, engine)
}

// runREPL drives the clarification dialogue over stdin.
func runREPL(ctx context.Context, engine *clara.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Ask a question (empty line to quit):")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			return
		}

		req := clara.QueryRequest{Query: query}
		for {
			result, err := engine.ProcessQuery(ctx, req)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				break
			}

			if !result.NeedsClarification() {
				printAnswer(result.Answer)
				break
			}

			q := result.Clarification.Questions[0]
			fmt.Printf("clarification needed: %s\n", q.Text)
			for _, opt := range q.SuggestedOptions {
				fmt.Printf("  - %s\n", opt)
			}
			fmt.Print(">> ")
			if !scanner.Scan() {
				return
			}
			answer := strings.TrimSpace(scanner.Text())
			if answer == "" {
				_ = engine.AbandonSession(ctx, result.Clarification.SessionID)
				break
			}
			req = clara.QueryRequest{
				SessionID:           result.Clarification.SessionID,
				ClarificationAnswer: answer,
			}
		}
	}
}

func printAnswer(answer *clara.Answer) {
	fmt.Printf("\n%s\n", answer.Text)
	fmt.Printf("confidence: %.2f", answer.Confidence)
	if answer.Clarified {
		fmt.Print(" (clarified)")
	}
	fmt.Println()
	for _, src := range answer.Sources {
		fmt.Printf("  [%s] relevance %.2f\n", src.ChunkID, src.Score)
	}
}

// provideModels picks providers by which API keys are present, falling
// back to a local Ollama instance.
func provideModels(ccfg *appconfig.AppConfig) (mini, big llm.LLMClient) {
	miniName := ccfg.MiniModel
	bigName := ccfg.BigModel

	switch {
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		if miniName == "" {
			miniName = "claude-3-5-haiku-latest"
		}
		if bigName == "" {
			bigName = "claude-sonnet-4-20250514"
		}
		return llm.NewAnthropicClient(miniName), llm.NewAnthropicClient(bigName)

	case os.Getenv("GROQ_API_KEY") != "":
		if miniName == "" {
			miniName = "llama-3.1-8b-instant"
		}
		if bigName == "" {
			bigName = "llama-3.3-70b-versatile"
		}
		return llm.NewGroqClient(miniName), llm.NewGroqClient(bigName)

	default:
		if miniName == "" {
			miniName = "llama3.2"
		}
		if bigName == "" {
			bigName = miniName
		}
		return llm.NewOllamaClient(miniName), llm.NewOllamaClient(bigName)
	}
}

func provideEmbedder(ccfg *appconfig.AppConfig) embedding.Embedder {
	model := ccfg.EmbeddingModel
	if model == "" {
		model = "nomic-embed-text"
	}

	if os.Getenv("OPENAI_API_KEY") != "" {
		embedder, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			Model: "text-embedding-3-small",
		})
		if err != nil {
			logger.Fatal("Failed to create embedder", zap.Error(err))
		}
		return embedder
	}

	return embedding.NewOllamaEmbedder(model)
}

func provideRetrieval(ccfg *appconfig.AppConfig, embedder embedding.Embedder) (retrieval.Retriever, retrieval.Indexer) {
	if ccfg.QdrantURL != "" {
		collection := ccfg.QdrantCollection
		if collection == "" {
			collection = "clara_documents"
		}
		client, err := qdrant.New(qdrant.Config{
			URL:            ccfg.QdrantURL,
			CollectionName: collection,
			APIKey:         os.Getenv("QDRANT_API_KEY"),
		}, embedder)
		if err != nil {
			logger.Fatal("Failed to create qdrant client", zap.Error(err))
		}
		return client, client
	}

	store := memory.New(embedder)
	return store, store
}

func engineConfig(ccfg *appconfig.AppConfig) clara.Config {
	cfg := clara.DefaultConfig()
	cfg.EnableClarifications = ccfg.EnableClarifications
	if ccfg.MaxClarificationTurns > 0 {
		cfg.MaxClarificationTurns = ccfg.MaxClarificationTurns
	}
	if ccfg.MaxQuestions > 0 {
		cfg.MaxClarificationQuestions = ccfg.MaxQuestions
	}
	if ccfg.SimilarityThreshold > 0 {
		cfg.SimilarityThreshold = ccfg.SimilarityThreshold
	}
	if ccfg.TopKDocuments > 0 {
		cfg.TopKDocuments = ccfg.TopKDocuments
	}
	return cfg
}
