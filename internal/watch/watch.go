// Package watch pre-renders pages as their markdown sources appear on disk.
//
// Cached pages are never refreshed: a page that is changed after it was
// first rendered keeps its cached content until the process restarts.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Bitlatte/pageserve/internal/model"
)

// DefaultDebounce is how long a file must be quiet before it is rendered.
const DefaultDebounce = 500 * time.Millisecond

// Cache is the part of the page store the warmer uses.
type Cache interface {
	Exists(name string) bool
	Render(name string) (model.Page, error)
}

// Warmer watches a pages directory and renders new pages into a Cache.
type Warmer struct {
	dir      string
	cache    Cache
	logger   *slog.Logger
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New returns a Warmer for the pages directory dir.
func New(dir string, cache Cache, logger *slog.Logger) *Warmer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Warmer{
		dir:      dir,
		cache:    cache,
		logger:   logger,
		debounce: DefaultDebounce,
		timers:   make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled.
func (w *Warmer) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching pages", "dir", w.dir)

	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Warmer) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	name, ok := pageName(event.Name)
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[name]; ok {
		t.Stop()
	}
	w.timers[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, name)
		w.mu.Unlock()
		w.warm(name)
	})
}

func (w *Warmer) warm(name string) {
	if w.cache.Exists(name) {
		w.logger.Info("page changed after it was cached; restart to serve the new version", "page", name)
		return
	}
	p, err := w.cache.Render(name)
	if err != nil {
		w.logger.Warn("failed to pre-render page", "page", name, "error", err)
		return
	}
	w.logger.Info("pre-rendered page", "page", p.Name, "title", p.Title)
}

func (w *Warmer) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
}

// pageName maps a path inside the pages directory to a page name.
func pageName(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || filepath.Ext(base) != ".md" {
		return "", false
	}
	name := strings.TrimSuffix(base, ".md")
	return name, name != ""
}
