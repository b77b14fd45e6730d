package embedding

import (
	"context"
	"fmt"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// OllamaEmbedder produces embeddings through a local Ollama daemon.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

func NewOllamaEmbedder(model string) *OllamaEmbedder {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		logger.Fatal("Failed to create Ollama client", zap.Error(err))
		return nil
	}

	return &OllamaEmbedder{
		client: client,
		model:  model,
	}
}

func (e *OllamaEmbedder) GetModel() string {
	return e.model
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings in response")
	}

	return resp.Embeddings[0], nil
}
