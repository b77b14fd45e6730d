package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/SaiNageswarS/go-api-boot/logger"
)

type GroqClient struct {
	apiKey     string
	httpClient *http.Client
	url        string
	model      string
}

func NewGroqClient(model string) LLMClient {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		logger.Fatal("GROQ_API_KEY environment variable is not set")
		return nil
	}

	return &GroqClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
		url:        "https://api.groq.com/openai/v1/chat/completions",
		model:      model,
	}
}

func (c *GroqClient) GetModel() string {
	return c.model
}

func (c *GroqClient) GenerateInference(ctx context.Context, messages []Message, callback func(chunk string) error, opts ...LLMOption) error {
	// Default settings
	settings := LLMSettings{
		model:       c.model,
		temperature: 0.7,
		maxTokens:   4096,
	}

	// Apply options
	for _, opt := range opts {
		opt(&settings)
	}

	request := groqRequest{
		Model:       settings.model,
		Messages:    messages,
		Temperature: settings.temperature,
		MaxTokens:   settings.maxTokens,
	}

	// Add system prompt if provided (Groq uses system message in messages array)
	if settings.system != "" {
		systemMsg := Message{
			Role:    "system",
			Content: settings.system,
		}
		request.Messages = append([]Message{systemMsg}, request.Messages...)
	}

	return c.makeRequest(ctx, request, callback)
}

func (c *GroqClient) makeRequest(ctx context.Context, request groqRequest, callback func(chunk string) error) error {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransportErr(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapTransportErr(ctx, err)
	}

	if resp.StatusCode != http.StatusOK {
		return wrapStatusErr(resp.StatusCode, string(body))
	}

	var response groqResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}

	if len(response.Choices) == 0 {
		return fmt.Errorf("no choices in response")
	}

	choice := response.Choices[0]
	if choice.Message.Content != "" && callback != nil {
		return callback(choice.Message.Content)
	}

	return nil
}

// Groq API types
type groqRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_completion_tokens,omitempty"`
}

type groqResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int    `json:"index"`
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
