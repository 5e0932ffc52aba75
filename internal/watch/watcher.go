// Package watch implements C2: a portable polling file watcher. It
// avoids any native filesystem-event API, rescanning the watched root
// on a fixed interval and diffing {path -> mtime} snapshots, per
// spec §4.2's explicit polling requirement (the teacher's fsnotify-based
// watcher is a different, event-driven model and was not reused here;
// see DESIGN.md).
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/contextforge/internal/debug"
	cferrors "github.com/standardbeagle/contextforge/internal/errors"
	"github.com/standardbeagle/contextforge/internal/types"
)

// Config configures a single watch.
type Config struct {
	Root           string
	Recursive      bool
	Patterns       []string
	IgnorePatterns []string
	PollInterval   time.Duration
	Debounce       time.Duration
}

// Stats reports cumulative counters for a running watch, mirroring the
// teacher's WatchStats shape.
type Stats struct {
	Scans          int64
	EventsEmitted  int64
	EventsDropped  int64
	LastScanAt     time.Time
	LastScanError  string
}

type debounceKey struct {
	path      string
	eventType types.FileEventType
}

// Watch is a single running poller. Create with Manager.StartWatch.
type Watch struct {
	id     string
	cfg    Config
	cancel chan struct{}
	done   chan struct{}

	mu       sync.Mutex
	snapshot map[string]time.Time
	queue    []types.FileEvent
	lastEmit map[debounceKey]time.Time
	stats    Stats
}

// Manager owns the set of active watches.
type Manager struct {
	mu      sync.Mutex
	watches map[string]*Watch
	nextID  int64
}

// NewManager creates an empty watch Manager.
func NewManager() *Manager {
	return &Manager{watches: make(map[string]*Watch)}
}

// StartWatch spawns a supervisor goroutine polling cfg.Root and returns
// its watch_id.
func (m *Manager) StartWatch(cfg Config) (string, error) {
	if cfg.Root == "" {
		return "", cferrors.New(cferrors.ValidationError, "watch root must not be empty")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	m.mu.Lock()
	m.nextID++
	id := "watch-" + itoa(m.nextID)
	w := &Watch{
		id:       id,
		cfg:      cfg,
		cancel:   make(chan struct{}),
		done:     make(chan struct{}),
		lastEmit: make(map[debounceKey]time.Time),
	}
	m.watches[id] = w
	m.mu.Unlock()

	snap, err := scan(cfg)
	if err != nil {
		m.mu.Lock()
		delete(m.watches, id)
		m.mu.Unlock()
		return "", err
	}
	w.snapshot = snap

	go w.run()
	debug.LogWatch("started %s root=%s", id, cfg.Root)
	return id, nil
}

// StopWatch signals the watch's goroutine to exit and waits for it to
// join.
func (m *Manager) StopWatch(watchID string) error {
	m.mu.Lock()
	w, ok := m.watches[watchID]
	if ok {
		delete(m.watches, watchID)
	}
	m.mu.Unlock()
	if !ok {
		return cferrors.New(cferrors.NotFound, "watch %q not found", watchID)
	}
	close(w.cancel)
	<-w.done
	return nil
}

// GetEvents drains up to max queued events for watchID without blocking.
func (m *Manager) GetEvents(watchID string, max int) ([]types.FileEvent, error) {
	m.mu.Lock()
	w, ok := m.watches[watchID]
	m.mu.Unlock()
	if !ok {
		return nil, cferrors.New(cferrors.NotFound, "watch %q not found", watchID)
	}
	return w.drain(max), nil
}

// StatsFor returns a snapshot of watchID's counters.
func (m *Manager) StatsFor(watchID string) (Stats, error) {
	m.mu.Lock()
	w, ok := m.watches[watchID]
	m.mu.Unlock()
	if !ok {
		return Stats{}, cferrors.New(cferrors.NotFound, "watch %q not found", watchID)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats, nil
}

func (w *Watch) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.cancel:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watch) poll() {
	snap, err := scan(w.cfg)
	w.mu.Lock()
	w.stats.Scans++
	w.stats.LastScanAt = time.Now()
	if err != nil {
		w.stats.LastScanError = err.Error()
		w.mu.Unlock()
		return
	}
	w.stats.LastScanError = ""
	prior := w.snapshot
	w.snapshot = snap
	w.mu.Unlock()

	now := time.Now()
	for path, mtime := range snap {
		oldMtime, existed := prior[path]
		var evtType types.FileEventType
		switch {
		case !existed:
			evtType = types.FileCreated
		case mtime.After(oldMtime):
			evtType = types.FileModified
		default:
			continue
		}
		w.emit(evtType, path, now)
	}
	for path := range prior {
		if _, stillThere := snap[path]; !stillThere {
			w.emit(types.FileDeleted, path, now)
		}
	}
}

func (w *Watch) emit(evtType types.FileEventType, path string, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := debounceKey{path: path, eventType: evtType}
	if last, ok := w.lastEmit[key]; ok && now.Sub(last) < w.cfg.Debounce {
		w.stats.EventsDropped++
		return
	}
	w.lastEmit[key] = now
	w.queue = append(w.queue, types.FileEvent{Type: evtType, Path: path, TS: now})
	w.stats.EventsEmitted++
}

func (w *Watch) drain(max int) []types.FileEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	if max <= 0 || max > len(w.queue) {
		max = len(w.queue)
	}
	out := w.queue[:max]
	w.queue = w.queue[max:]
	return out
}

func scan(cfg Config) (map[string]time.Time, error) {
	result := make(map[string]time.Time)
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if !cfg.Recursive && path != cfg.Root {
				return filepath.SkipDir
			}
			return nil
		}
		if !matches(d.Name(), cfg) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		result[path] = info.ModTime()
		return nil
	}

	if err := filepath.WalkDir(cfg.Root, walkFn); err != nil {
		return nil, cferrors.Wrap(cferrors.Internal, err, "scanning %s", cfg.Root)
	}
	return result, nil
}

func matches(basename string, cfg Config) bool {
	return Matches(basename, cfg.Patterns, cfg.IgnorePatterns)
}

// Matches reports whether basename passes the include/exclude glob rules
// C2 applies during a rescan: excluded if it matches any ignore pattern,
// otherwise included if patterns is empty or it matches at least one.
// Exported so batch consumers (e.g. a CLI index command) can apply the
// same basename filtering without spinning up a full watch.
func Matches(basename string, patterns, ignorePatterns []string) bool {
	for _, ignore := range ignorePatterns {
		if ok, _ := doublestar.Match(ignore, basename); ok {
			return false
		}
	}
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, basename); ok {
			return true
		}
	}
	return false
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
