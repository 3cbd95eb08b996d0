package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 200 * time.Millisecond

// FileSource emits encounter-update events whenever a snapshot file changes.
type FileSource struct {
	path     string
	debounce time.Duration
	logger   *zap.Logger
	events   chan Event
}

// NewFileSource watches the snapshot JSON at path.
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
		logger:   logger,
		events:   make(chan Event, eventBuffer),
	}
}

// Events returns encounter-update events. The channel is closed when Run returns.
func (f *FileSource) Events() <-chan Event {
	return f.events
}

// Run emits the current file contents, then one event per debounced burst of
// writes, until ctx is cancelled. The parent directory is watched so editors
// that replace the file by rename are followed.
func (f *FileSource) Run(ctx context.Context) error {
	defer close(f.events)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", f.path, err)
	}
	f.logger.Info("watching snapshot file", zap.String("path", f.path))

	if !f.emit(ctx) {
		return nil
	}

	timer := time.NewTimer(f.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			f.logger.Debug("snapshot file event", zap.String("op", ev.Op.String()))
			timer.Reset(f.debounce)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("watcher error", zap.Error(werr))
		case <-timer.C:
			if !f.emit(ctx) {
				return nil
			}
		}
	}
}

// emit reads the file and sends it as an event. It returns false when ctx is done.
func (f *FileSource) emit(ctx context.Context) bool {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("failed to read snapshot", zap.Error(err))
		}
		return ctx.Err() == nil
	}
	if !json.Valid(data) {
		// Partial writes are retried on the next event.
		f.logger.Debug("skipping incomplete snapshot", zap.Int("bytes", len(data)))
		return ctx.Err() == nil
	}
	select {
	case f.events <- Event{Name: EventEncounterUpdate, Payload: data}:
		return true
	case <-ctx.Done():
		return false
	}
}
