package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher reloads the simulation section of a config file into a Store
// whenever the file changes on disk. Other sections are read once at startup.
type Watcher struct {
	path  string
	store *Store

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// NewWatcher creates a watcher for path feeding store.
func NewWatcher(path string, store *Store) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	return &Watcher{path: absPath, store: store}, nil
}

// Reload parses the file and writes its simulation section into the store.
// A file that fails to parse or validate leaves the store untouched.
func (w *Watcher) Reload() ([]string, error) {
	cfg, err := Load(w.path)
	if err != nil {
		return nil, err
	}
	changed := w.store.Replace(cfg.Simulation)
	if len(changed) > 0 {
		slog.Info("config reloaded", "path", w.path, "changed", changed)
	}
	return changed, nil
}

// Start begins watching in the background until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("config watcher is closed")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}

	// Watch the directory; editors often replace the file rather than write it.
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}
	w.watcher = fw

	go w.loop(ctx, fw, filepath.Base(w.path))

	slog.Info("watching config file", "path", w.path)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, file string) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.Close()
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != file {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if _, err := w.Reload(); err != nil {
					slog.Warn("config reload rejected", "path", w.path, "error", err)
				}
			})

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.watcher != nil {
		err := w.watcher.Close()
		w.watcher = nil
		return err
	}
	return nil
}
