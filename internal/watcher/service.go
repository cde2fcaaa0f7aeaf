// Package watcher reloads the strategy file when it changes on disk,
// so edits made outside the bot take effect without a restart.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Service watches a single strategy file for external edits. Events are
// debounced because editors typically emit several writes per save.
type Service struct {
	path     string
	logger   *slog.Logger
	onChange func(context.Context)
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

func New(path string, logger *slog.Logger, onChange func(context.Context)) (*Service, error) {
	fileWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Service{
		path:     filepath.Clean(path),
		logger:   logger,
		onChange: onChange,
		watcher:  fileWatcher,
		debounce: 500 * time.Millisecond,
	}, nil
}

func (s *Service) Start(ctx context.Context) error {
	defer s.watcher.Close()

	// Watch the directory, not the file: rename-and-replace saves would
	// otherwise drop the watch.
	dir := filepath.Dir(s.path)
	if err := s.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch path %s: %w", dir, err)
	}
	s.logger.Info("strategy file watcher started", "path", s.path)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("strategy file watcher stopped")
			return nil
		case <-fire:
			fire = nil
			s.logger.Info("strategy file changed on disk", "path", s.path)
			s.onChange(ctx)
		case event := <-s.watcher.Events:
			if !s.matches(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.debounce)
			}
			fire = timer.C
		case err := <-s.watcher.Errors:
			if err != nil {
				s.logger.Error("file watcher error", "error", err)
			}
		}
	}
}

func (s *Service) matches(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != s.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
