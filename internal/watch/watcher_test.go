package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/contextforge/internal/types"
)

func waitForEvents(t *testing.T, m *Manager, id string, timeout time.Duration) []types.FileEvent {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		events, err := m.GetEvents(id, 0)
		require.NoError(t, err)
		if len(events) > 0 {
			return events
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil
}

func TestStartWatchDetectsCreateAndModify(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()
	id, err := m.StartWatch(Config{
		Root:         dir,
		Patterns:     []string{"*.go"},
		PollInterval: 30 * time.Millisecond,
		Debounce:     0,
	})
	require.NoError(t, err)
	defer m.StopWatch(id)

	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0644))

	events := waitForEvents(t, m, id, time.Second)
	require.NotEmpty(t, events)
	assert.Equal(t, types.FileCreated, events[0].Type)
	assert.Equal(t, path, events[0].Path)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("package a\n\nfunc A() {}\n"), 0644))

	events = waitForEvents(t, m, id, time.Second)
	require.NotEmpty(t, events)
	assert.Equal(t, types.FileModified, events[0].Type)
	assert.Equal(t, path, events[0].Path)
}

func TestStartWatchDetectsDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.go")
	require.NoError(t, os.WriteFile(path, []byte("package b\n"), 0644))

	m := NewManager()
	id, err := m.StartWatch(Config{
		Root:         dir,
		Patterns:     []string{"*.go"},
		PollInterval: 30 * time.Millisecond,
	})
	require.NoError(t, err)
	defer m.StopWatch(id)

	require.NoError(t, os.Remove(path))

	deadline := time.Now().Add(time.Second)
	var found bool
	for time.Now().Before(deadline) {
		events, err := m.GetEvents(id, 0)
		require.NoError(t, err)
		for _, e := range events {
			if e.Type == types.FileDeleted && e.Path == path {
				found = true
			}
		}
		if found {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.True(t, found, "expected a delete event for %s", path)
}

func TestIgnorePatternsExcludeFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.go"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.gen.go"), []byte("x"), 0644))

	m := NewManager()
	id, err := m.StartWatch(Config{
		Root:           dir,
		Patterns:       []string{"*.go"},
		IgnorePatterns: []string{"*.gen.go"},
		PollInterval:   time.Hour,
	})
	require.NoError(t, err)
	defer m.StopWatch(id)

	w := m.watches[id]
	w.mu.Lock()
	defer w.mu.Unlock()
	_, hasKeep := w.snapshot[filepath.Join(dir, "keep.go")]
	_, hasSkip := w.snapshot[filepath.Join(dir, "skip.gen.go")]
	assert.True(t, hasKeep)
	assert.False(t, hasSkip)
}

func TestDebounceSuppressesRepeatEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.go")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	m := NewManager()
	id, err := m.StartWatch(Config{
		Root:         dir,
		Patterns:     []string{"*.go"},
		PollInterval: 20 * time.Millisecond,
		Debounce:     500 * time.Millisecond,
	})
	require.NoError(t, err)
	defer m.StopWatch(id)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("v"+string(rune('2'+i))), 0644))
		time.Sleep(40 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	events, err := m.GetEvents(id, 0)
	require.NoError(t, err)

	modifyCount := 0
	for _, e := range events {
		if e.Type == types.FileModified {
			modifyCount++
		}
	}
	assert.LessOrEqual(t, modifyCount, 1, "debounce should suppress rapid repeat modify events")
}

func TestStopWatchJoinsGoroutine(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()
	id, err := m.StartWatch(Config{Root: dir, PollInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, m.StopWatch(id))

	_, err = m.GetEvents(id, 0)
	assert.Error(t, err)
}

func TestStartWatchRejectsEmptyRoot(t *testing.T) {
	m := NewManager()
	_, err := m.StartWatch(Config{})
	assert.Error(t, err)
}
