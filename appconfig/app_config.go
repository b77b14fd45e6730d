package appconfig

import (
	"github.com/SaiNageswarS/go-api-boot/config"
)

type AppConfig struct {
	config.BootConfig `ini:",extends"`

	QdrantURL        string `env:"QDRANT-URL" ini:"qdrant_url"`
	QdrantCollection string `env:"QDRANT-COLLECTION" ini:"qdrant_collection"`
	RedisAddr        string `env:"REDIS-ADDR" ini:"redis_addr"`

	MiniModel      string `env:"MINI-MODEL" ini:"mini_model"`
	BigModel       string `env:"BIG-MODEL" ini:"big_model"`
	EmbeddingModel string `env:"EMBEDDING-MODEL" ini:"embedding_model"`

	DocumentsDir string `env:"DOCUMENTS-DIR" ini:"documents_dir"`

	EnableClarifications  bool    `ini:"enable_clarifications"`
	MaxClarificationTurns int     `ini:"max_clarification_turns"`
	MaxQuestions          int     `ini:"max_clarification_questions"`
	SimilarityThreshold   float64 `ini:"similarity_threshold"`
	TopKDocuments         int     `ini:"top_k_documents"`
}
