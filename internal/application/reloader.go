package application

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/streakd/streakd/internal/domain/model"
)

// LoadFunc reads and validates the candidate account configuration. It must
// return an error for any invalid input; the reloader never swaps a
// partially-valid list.
type LoadFunc func() ([]model.Account, error)

// Reloader re-reads the account configuration and atomically swaps the
// registry snapshot. Invalid input leaves the previous snapshot active.
// Reload is idempotent under concurrent invocation: a reload already in
// progress absorbs a second request instead of running twice.
type Reloader struct {
	registry *Registry
	load     LoadFunc
	interval time.Duration
	busy     atomic.Bool
}

// NewReloader creates a reloader polling every interval; interval <= 0
// defaults to 30 seconds.
func NewReloader(registry *Registry, load LoadFunc, interval time.Duration) *Reloader {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reloader{registry: registry, load: load, interval: interval}
}

// Reload loads, validates, and swaps. On validation failure the active
// snapshot is untouched and the error is returned. A concurrent Reload in
// progress absorbs this call, returning nil without doing work.
func (r *Reloader) Reload(ctx context.Context) error {
	if !r.busy.CompareAndSwap(false, true) {
		return nil
	}
	defer r.busy.Store(false)

	accounts, err := r.load()
	if err != nil {
		slog.Error("config reload rejected, keeping previous snapshot", "error", err)
		return err
	}

	snap := r.registry.Swap(accounts)
	slog.Info("config reloaded",
		"snapshot", snap.Version,
		"accounts", len(snap.Accounts),
		"enabled", len(snap.Enabled()),
	)
	return nil
}

// Start runs the periodic check loop and, when path is non-empty, an fsnotify
// watch on the configuration file. Either trigger funnels into Reload; the
// watch is best-effort and the periodic poll remains the backstop.
func (r *Reloader) Start(ctx context.Context, path string) {
	events := make(chan struct{}, 1)
	if path != "" {
		go r.watch(ctx, path, events)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("config reloader stopped")
			return
		case <-ticker.C:
			_ = r.Reload(ctx) // already logged; periodic failures must not stop the loop
		case <-events:
			_ = r.Reload(ctx)
		}
	}
}

// watch observes the directory containing path (watching the directory, not
// the file, survives editors that replace the file on save) and debounces
// bursts of write events into single reload triggers.
func (r *Reloader) watch(ctx context.Context, path string, events chan<- struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("config file watch unavailable, relying on periodic checks", "error", err)
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		slog.Warn("config file watch unavailable, relying on periodic checks", "dir", dir, "error", err)
		return
	}

	target := filepath.Clean(path)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				select {
				case events <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config file watch error", "error", err)
		}
	}
}
