package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// HandlerFunc processes one case definition file.
type HandlerFunc func(ctx context.Context, path string)

// Config contains configuration for the inbox watcher.
type Config struct {
	// Dir is the inbox directory.
	Dir string

	// DebounceInterval is the quiet period after the last write to a file
	// before it is handed to the handler (default: 200ms)
	DebounceInterval time.Duration

	// Extensions lists the file extensions that are processed
	// (default: ".json")
	Extensions []string

	// ScanExisting hands files already in the inbox to the handler when
	// watching starts.
	ScanExisting bool
}

// Watcher hands case definition files dropped into a directory to a
// handler. Rapid writes to the same file are collapsed into one call.
type Watcher struct {
	watcher  *fsnotify.Watcher
	config   Config
	debounce *Debouncer
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewWatcher creates an inbox watcher. The directory is created if needed.
func NewWatcher(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("inbox directory is required")
	}
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = 200 * time.Millisecond
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".json"}
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inbox: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  watcher,
		config:   cfg,
		debounce: NewDebouncer(cfg.DebounceInterval),
		logger:   slog.Default().With("component", "inbox.watcher"),
	}, nil
}

// Watch blocks until ctx is cancelled, passing new and rewritten files to
// handle. The watcher is closed when Watch returns.
func (w *Watcher) Watch(ctx context.Context, handle HandlerFunc) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.debounce.Stop()
		w.watcher.Close()
	}()

	if err := w.watcher.Add(w.config.Dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.config.Dir, err)
	}
	w.logger.Info("inbox watcher started",
		"dir", w.config.Dir,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	if w.config.ScanExisting {
		existing, err := w.Pending()
		if err != nil {
			return err
		}
		for _, path := range existing {
			handle(ctx, path)
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.shouldProcess(event) {
				continue
			}
			w.logger.Debug("inbox event", "path", event.Name, "op", event.Op.String())

			path := event.Name
			w.debounce.Trigger(path, func() {
				if ctx.Err() != nil {
					return
				}
				handle(ctx, path)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("inbox watcher error", "error", err)
		}
	}
}

// Pending lists the matching files currently in the inbox, sorted by name.
func (w *Watcher) Pending() ([]string, error) {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !w.matches(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.config.Dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	return w.matches(filepath.Base(event.Name))
}

// matches skips hidden files, which editors and copy tools use for partial
// writes, and files with other extensions.
func (w *Watcher) matches(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, valid := range w.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}

// Debouncer collapses rapid triggers per key into one callback after a
// quiet period.
type Debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		timers:   make(map[string]*time.Timer),
	}
}

// Trigger (re)starts the timer for key. Only the callback of the last
// trigger within the interval runs.
func (d *Debouncer) Trigger(key string, callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		if d.stopped || d.timers[key] != timer {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()

		callback()
	})
	d.timers[key] = timer
}

// Stop cancels pending callbacks. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
