// SPDX-License-Identifier: MIT

package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	xglog "github.com/ManuGH/mbconfig/internal/log"
	"github.com/ManuGH/mbconfig/internal/metrics"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the watcher waits after the last file event before reloading.
const DefaultDebounce = 500 * time.Millisecond

// ErrWatcherRunning is returned by StartWatcher when the holder is already watching.
var ErrWatcherRunning = errors.New("watcher already running")

// Holder holds the last valid configuration of one project file.
// A reload either swaps in a fully valid configuration or keeps the old one.
type Holder struct {
	mu         sync.RWMutex
	current    *Config
	lastReload time.Time
	lastErr    error
	path       string
	logger     zerolog.Logger

	// Debounce applies to watcher events; set it before StartWatcher.
	Debounce time.Duration

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}

	reloadMu  sync.RWMutex
	listeners []chan<- *Config
}

// NewHolder loads path and returns a holder for it.
func NewHolder(path string) (*Holder, error) {
	path = filepath.Clean(path)
	initial, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Holder{
		current:  initial,
		path:     path,
		logger:   xglog.WithComponent("project"),
		Debounce: DefaultDebounce,
	}, nil
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// LastReload returns the time of the last reload attempt and its error.
// Both are zero until Reload has run once.
func (h *Holder) LastReload() (time.Time, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastReload, h.lastErr
}

// Path returns the watched file.
func (h *Holder) Path() string {
	return h.path
}

// Reload loads the file again. On failure the old configuration is kept and the error returned.
func (h *Holder) Reload(ctx context.Context) error {
	logger := xglog.WithContext(ctx, h.logger).With().Str(xglog.FieldPath, h.path).Logger()
	logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading project configuration")

	start := time.Now()
	newCfg, err := Load(h.path)
	Observe(metrics.SourceReload, start, err)
	if err != nil {
		h.mu.Lock()
		h.lastReload, h.lastErr = start, err
		h.mu.Unlock()
		metrics.IncReload(false)
		ev := logger.Error().Err(err).Str(xglog.FieldEvent, "config.reload_failed")
		if vs := Violations(err); vs != nil {
			ev = ev.Int(xglog.FieldViolations, len(vs))
		}
		ev.Msg("project configuration rejected, keeping previous configuration")
		return fmt.Errorf("reload: %w", err)
	}

	h.mu.Lock()
	old := h.current
	h.current = newCfg
	h.lastReload, h.lastErr = start, nil
	h.mu.Unlock()
	metrics.IncReload(true)

	h.notifyListeners(newCfg)
	h.logChanges(logger, old, newCfg)

	logger.Info().
		Str(xglog.FieldEvent, "config.reload_success").
		Int(xglog.FieldWarnings, len(Lint(newCfg))).
		Msg("project configuration reloaded")
	return nil
}

// StartWatcher watches the file for changes until ctx is done or Stop is called.
// The parent directory is watched so that editors replacing the file are noticed.
// A watcher whose loop has exited may be started again.
func (h *Holder) StartWatcher(ctx context.Context) error {
	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	if h.watchingLocked() {
		return ErrWatcherRunning
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.watcher = watcher
	h.stop = make(chan struct{})
	h.done = make(chan struct{})

	h.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str(xglog.FieldPath, h.path).
		Msg("watching project file for changes")

	go h.watchLoop(ctx, watcher, h.stop, h.done)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() { _ = watcher.Close() }()

	debounce := h.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("project watcher stopped")
			return
		case <-stop:
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("project watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != h.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str(xglog.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("project file changed")

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			// Errors are logged by Reload.
			_ = h.Reload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("project watcher error")
		}
	}
}

// Watching reports whether the watch loop is running.
func (h *Holder) Watching() bool {
	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	return h.watchingLocked()
}

// watchingLocked clears the state of a loop that exited on its own. Requires watchMu.
func (h *Holder) watchingLocked() bool {
	if h.watcher == nil {
		return false
	}
	select {
	case <-h.done:
		h.watcher = nil
		return false
	default:
		return true
	}
}

// Stop stops the watcher (if running) and waits for it to exit.
func (h *Holder) Stop() {
	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	if h.watcher == nil {
		return
	}
	close(h.stop)
	<-h.done
	h.watcher = nil
}

// RegisterListener registers a channel to receive each successfully reloaded configuration.
// Sends are non-blocking; the caller is responsible for closing the channel.
func (h *Holder) RegisterListener(ch chan<- *Config) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notifyListeners(cfg *Config) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().
				Str(xglog.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(logger zerolog.Logger, old, newCfg *Config) {
	logCount := func(section string, before, after int) {
		if before != after {
			logger.Info().Int("old", before).Int("new", after).Msgf("config changed: %s", section)
		}
	}
	logCount("tasks", len(old.Tasks), len(newCfg.Tasks))
	logCount("apps", len(old.Apps), len(newCfg.Apps))
	logCount("families", len(old.Families), len(newCfg.Families))
	logCount("template", len(old.Template), len(newCfg.Template))
	if old.Schema != newCfg.Schema {
		logger.Info().Str("old", old.Schema).Str("new", newCfg.Schema).Msg("config changed: schema")
	}
}
