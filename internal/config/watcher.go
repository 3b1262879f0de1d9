package config

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 1500 * time.Millisecond

// Watcher reloads a config file when it changes and fans the fresh value
// out to registered handlers. The loader runs on every change so handlers
// never see stale data.
type Watcher[T any] struct {
	path     string
	debounce time.Duration
	loader   func(path string) (T, error)
	onError  func(error)
	logger   *slog.Logger

	mu       sync.RWMutex
	handlers []func(T)

	fs     *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce overrides the settle time after the last write event.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.debounce = d
	}
}

// WithErrorHandler installs a callback for loader failures. Without it,
// failures are only logged.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = handler
	}
}

// NewConfigWatcher builds a watcher for path. Call Start to begin
// receiving file events.
func NewConfigWatcher[T any](
	path string,
	loader func(path string) (T, error),
	logger *slog.Logger,
	opts ...WatcherOption[T],
) *Watcher[T] {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher[T]{
		path:     path,
		debounce: defaultDebounce,
		loader:   loader,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers a handler for reloaded config. The returned function
// removes it.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	w.handlers = append(w.handlers, handler)
	idx := len(w.handlers) - 1
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if idx < len(w.handlers) {
			w.handlers[idx] = nil
		}
	}
}

// Start begins watching the file.
func (w *Watcher[T]) Start() error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fs.Add(w.path); err != nil {
		fs.Close()
		return err
	}
	w.fs = fs

	w.logger.Info("config watcher started", "path", w.path, "debounce", w.debounce)
	go w.loop()
	return nil
}

// Stop ends watching and releases the inotify handle.
func (w *Watcher[T]) Stop() error {
	w.cancel()
	if w.fs != nil {
		return w.fs.Close()
	}
	return nil
}

func (w *Watcher[T]) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Debug("config watcher stopped")
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			// Editors either write in place or replace the file, so both
			// Write and Create restart the debounce timer.
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.logger.Debug("config file changed", "op", event.Op.String())
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			}

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher[T]) reload() {
	value, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.RLock()
	handlers := make([]func(T), 0, len(w.handlers))
	for _, h := range w.handlers {
		if h != nil {
			handlers = append(handlers, h)
		}
	}
	w.mu.RUnlock()

	w.logger.Info("config reloaded", "path", w.path)
	for _, handler := range handlers {
		handler(value)
	}
}
