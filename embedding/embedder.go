package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
