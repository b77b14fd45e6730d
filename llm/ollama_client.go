package llm

import (
	"context"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// OllamaClient runs inference against a local Ollama daemon. Useful for
// development and for keeping the corpus fully private.
type OllamaClient struct {
	client *api.Client
	model  string
}

func NewOllamaClient(model string) LLMClient {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		logger.Fatal("Failed to create Ollama client", zap.Error(err))
		return nil
	}

	return &OllamaClient{
		client: client,
		model:  model,
	}
}

func (c *OllamaClient) GetModel() string {
	return c.model
}

func (c *OllamaClient) GenerateInference(ctx context.Context, messages []Message, callback func(chunk string) error, opts ...LLMOption) error {
	settings := LLMSettings{
		model:       c.model,
		temperature: 0.7,
		maxTokens:   4096,
	}

	for _, opt := range opts {
		opt(&settings)
	}

	chatMessages := make([]api.Message, 0, len(messages)+1)
	if settings.system != "" {
		chatMessages = append(chatMessages, api.Message{Role: "system", Content: settings.system})
	}
	for _, m := range messages {
		chatMessages = append(chatMessages, api.Message{Role: m.Role, Content: m.Content})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    settings.model,
		Messages: chatMessages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": settings.temperature,
			"num_predict": settings.maxTokens,
		},
	}

	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		return callback(resp.Message.Content)
	})
	if err != nil {
		return wrapTransportErr(ctx, err)
	}

	return nil
}
