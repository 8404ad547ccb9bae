package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
)

// DefaultDebounce collapses the burst of events an editor save produces
const DefaultDebounce = 200 * time.Millisecond

// FileSource reads a graph payload from a JSON file on disk
type FileSource struct {
	path     string
	debounce time.Duration
	logger   logging.Logger
}

// NewFileSource returns a source for path
func NewFileSource(path string, logger logging.Logger) *FileSource {
	return &FileSource{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		logger:   logging.OrNop(logger).With(logging.Component("loader.file")),
	}
}

func (s *FileSource) Name() string { return "file" }

// Path returns the watched file
func (s *FileSource) Path() string { return s.path }

// SetDebounce changes the reload debounce delay
func (s *FileSource) SetDebounce(d time.Duration) { s.debounce = d }

func (s *FileSource) Fetch(ctx context.Context) (*graph.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &FetchError{
			Source:    s.Name(),
			Retryable: !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission),
			Err:       err,
		}
	}
	p, err := graph.DecodePayload(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, s.path, err)
	}
	return p, nil
}

// Watch calls onChange after the file is written, created or renamed into
// place, until ctx is cancelled. The parent directory is watched so that
// atomic replace-by-rename saves are seen.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}
	s.logger.Debug("watching graph file", logging.String("path", s.path))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.logger.Info("graph file changed",
				logging.String("path", event.Name),
				logging.String("operation", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("graph file watcher error", logging.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}
