// Package watch turns a drop folder into batches of newly arrived files.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the folder must stay quiet before a batch is submitted.
const DefaultDebounce = 2 * time.Second

// SubmitFunc receives one batch of file paths.
type SubmitFunc func(ctx context.Context, paths []string) error

// Config controls a Watcher.
type Config struct {
	Dir      string
	Debounce time.Duration
	// Filter limits which base names are collected. Nil accepts every file.
	Filter func(name string) bool
	Logger zerolog.Logger
}

// Watcher collects files created or written in one directory.
type Watcher struct {
	cfg     Config
	watcher *fsnotify.Watcher
}

// New starts watching cfg.Dir. Events are buffered until Run is called.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch directory is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("stat watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %q is not a directory", cfg.Dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(cfg.Dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %q: %w", cfg.Dir, err)
	}

	return &Watcher{cfg: cfg, watcher: w}, nil
}

// Run delivers batches to submit until ctx is done. Submit errors are logged
// and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context, submit SubmitFunc) error {
	defer w.watcher.Close()

	logger := w.cfg.Logger
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				if !w.accept(event.Name) {
					continue
				}
				pending[event.Name] = struct{}{}
				timer.Reset(w.cfg.Debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			logger.Warn().Err(err).Str("dir", w.cfg.Dir).Msg("watcher error")

		case <-timer.C:
			batch := drain(pending)
			if len(batch) == 0 {
				continue
			}
			logger.Info().Int("files", len(batch)).Str("dir", w.cfg.Dir).Msg("submitting dropped files")
			if err := submit(ctx, batch); err != nil {
				logger.Error().Err(err).Int("files", len(batch)).Msg("submit dropped files")
			}
		}
	}
}

func (w *Watcher) accept(path string) bool {
	if filepath.Dir(path) != filepath.Clean(w.cfg.Dir) {
		return false
	}
	if w.cfg.Filter != nil && !w.cfg.Filter(filepath.Base(path)) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// drain empties pending and returns the files that still exist, sorted.
func drain(pending map[string]struct{}) []string {
	batch := make([]string, 0, len(pending))
	for p := range pending {
		delete(pending, p)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			batch = append(batch, p)
		}
	}
	sort.Strings(batch)
	return batch
}
