// Package qdrant implements retrieval.Retriever and retrieval.Indexer
// over the official Qdrant gRPC client.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/clararag/clara/embedding"
	"github.com/clararag/clara/retrieval"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config holds Qdrant connection configuration.
type Config struct {
	// URL is the Qdrant server address (e.g., "https://example.qdrant.io:6334").
	URL string

	// CollectionName is the name of the collection to search.
	CollectionName string

	// APIKey is optional API key for authentication.
	APIKey string
}

// Client talks to one Qdrant collection. Query text is embedded with the
// injected embedder before the vector search.
type Client struct {
	client         *qdrant.Client
	embedder       embedding.Embedder
	collectionName string
}

// New creates a new Qdrant-backed retriever.
func New(cfg Config, embedder embedding.Embedder) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}

	parsedURL := cfg.URL
	if !strings.HasPrefix(parsedURL, "http://") && !strings.HasPrefix(parsedURL, "https://") {
		parsedURL = "https://" + parsedURL
	}

	u, err := url.Parse(parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	host := u.Hostname()
	port := 6334 // default gRPC port
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	useTLS := u.Scheme == "https"

	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Client{
		client:         qdrantClient,
		embedder:       embedder,
		collectionName: cfg.CollectionName,
	}, nil
}

// Search implements retrieval.Retriever.
func (c *Client) Search(ctx context.Context, query string, topK int, minScore float64) ([]retrieval.Chunk, error) {
	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", retrieval.ErrUnavailable, err)
	}

	limit := uint64(topK)
	points, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		// A collection that was never indexed is "no evidence", not an outage.
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: qdrant query: %v", retrieval.ErrUnavailable, err)
	}

	chunks := make([]retrieval.Chunk, 0, len(points))
	for _, point := range points {
		score := float64(point.Score)
		if minScore > 0 && score < minScore {
			continue
		}

		chunk := retrieval.Chunk{
			Score:    score,
			Metadata: make(map[string]string),
		}

		if point.Id != nil {
			if id := point.Id.GetUuid(); id != "" {
				chunk.ChunkID = id
			} else if num := point.Id.GetNum(); num != 0 {
				chunk.ChunkID = strconv.FormatUint(num, 10)
			}
		}

		for key, value := range point.Payload {
			switch key {
			case "document_id":
				chunk.DocumentID = value.GetStringValue()
			case "chunk_id":
				if v := value.GetStringValue(); v != "" {
					chunk.ChunkID = v
				}
			case "text":
				chunk.Text = value.GetStringValue()
			case "index":
				chunk.Index = int(value.GetIntegerValue())
			default:
				if v := value.GetStringValue(); v != "" {
					chunk.Metadata[key] = v
				}
			}
		}

		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// Init implements retrieval.Indexer. Creates the collection if missing.
func (c *Client) Init(ctx context.Context, dimension int) error {
	exists, err := c.client.CollectionExists(ctx, c.collectionName)
	if err != nil {
		return fmt.Errorf("%w: collection exists: %v", retrieval.ErrUnavailable, err)
	}
	if exists {
		return nil
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: create collection: %v", retrieval.ErrUnavailable, err)
	}
	return nil
}

// Upsert implements retrieval.Indexer.
func (c *Client) Upsert(ctx context.Context, chunks []retrieval.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch")
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, ch := range chunks {
		payload := map[string]any{
			"document_id": ch.DocumentID,
			"chunk_id":    ch.ChunkID,
			"index":       int64(ch.Index),
			"text":        ch.Text,
		}
		for k, v := range ch.Metadata {
			payload[k] = v
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(ch.ChunkID)).String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	wait := true
	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collectionName,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant upsert: %v", retrieval.ErrUnavailable, err)
	}
	return nil
}

// DeleteDocument implements retrieval.Indexer.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("%w: qdrant delete: %v", retrieval.ErrUnavailable, err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}
