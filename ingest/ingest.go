package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/clararag/clara/embedding"
	"github.com/clararag/clara/retrieval"
	"go.uber.org/zap"
)

var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Ingestor loads documents into a retrieval index. Document identity is
// the file's base name, so re-ingesting a changed file replaces its
// chunks in place.
type Ingestor struct {
	indexer     retrieval.Indexer
	embedder    embedding.Embedder
	chunker     *SentenceChunker
	initialized bool
}

func NewIngestor(indexer retrieval.Indexer, embedder embedding.Embedder, chunker *SentenceChunker) *Ingestor {
	if chunker == nil {
		chunker = NewSentenceChunker(5, 1)
	}
	return &Ingestor{
		indexer:  indexer,
		embedder: embedder,
		chunker:  chunker,
	}
}

// IngestFile chunks, embeds and upserts one document. Returns the number
// of chunks indexed.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (int, error) {
	if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
		return 0, fmt.Errorf("unsupported file type: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	documentID := filepath.Base(path)
	chunks := in.chunker.Chunk(documentID, string(content))
	if len(chunks) == 0 {
		logger.Info("Skipping empty document", zap.String("path", path))
		return 0, nil
	}

	embedTasks := make([]<-chan async.Result[[]float32], 0, len(chunks))
	for _, ch := range chunks {
		text := ch.Text
		embedTasks = append(embedTasks, async.Go(func() ([]float32, error) {
			return in.embedder.Embed(ctx, text)
		}))
	}

	vectors, err := async.AwaitAll(embedTasks...)
	if err != nil {
		return 0, fmt.Errorf("failed to embed %s: %w", documentID, err)
	}

	if !in.initialized {
		if err := in.indexer.Init(ctx, len(vectors[0])); err != nil {
			return 0, err
		}
		in.initialized = true
	}

	if err := in.indexer.Upsert(ctx, chunks, vectors); err != nil {
		return 0, err
	}

	logger.Info("Indexed document",
		zap.String("documentId", documentID),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// IngestDir ingests every supported file directly under dir.
func (in *Ingestor) IngestDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		n, err := in.IngestFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// RemoveFile deletes the document that was ingested from path.
func (in *Ingestor) RemoveFile(ctx context.Context, path string) error {
	return in.indexer.DeleteDocument(ctx, filepath.Base(path))
}
