package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher keeps the index in sync with a documents directory. Created and
// modified files are re-ingested; removed files are deleted from the index.
type Watcher struct {
	ingestor *Ingestor
	watcher  *fsnotify.Watcher
}

func NewWatcher(ingestor *Ingestor) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{ingestor: ingestor, watcher: w}, nil
}

// Watch monitors dir until ctx is cancelled. It blocks; run it in its
// own goroutine.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	logger.Info("Watching documents directory", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !supportedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}

			switch {
			case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
				if _, err := w.ingestor.IngestFile(ctx, event.Name); err != nil {
					logger.Error("Failed to re-index file",
						zap.String("path", event.Name), zap.Error(err))
				}
			case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
				if err := w.ingestor.RemoveFile(ctx, event.Name); err != nil {
					logger.Error("Failed to remove file from index",
						zap.String("path", event.Name), zap.Error(err))
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
