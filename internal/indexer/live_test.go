package indexer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/contextforge/internal/chunk"
	"github.com/standardbeagle/contextforge/internal/watch"
)

func TestLiveIndexerIndexesCreatedFile(t *testing.T) {
	dir := t.TempDir()
	idx, _ := newTestIndexer()
	manager := watch.NewManager()

	var updates []UpdateEvent
	li, err := NewLiveIndexer(manager, idx, watch.Config{
		Root:         dir,
		Patterns:     []string{"*.go"},
		PollInterval: 20 * time.Millisecond,
	}, chunk.AUTO, func(u UpdateEvent) { updates = append(updates, u) })
	require.NoError(t, err)
	defer li.Stop()

	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n\nfunc X() {}\n"), 0644))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(updates) == 0 {
		time.Sleep(20 * time.Millisecond)
		li.Pump(0)
	}
	require.NotEmpty(t, updates)
	assert.Equal(t, path, updates[0].FilePath)

	_, tracked := idx.State(path)
	assert.True(t, tracked)
}

func TestLiveIndexerRemovesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0644))

	idx, _ := newTestIndexer()
	_, err := idx.IndexFile(path, "package a\n", "go", chunk.REGEX, false)
	require.NoError(t, err)

	manager := watch.NewManager()
	li, err := NewLiveIndexer(manager, idx, watch.Config{
		Root:         dir,
		Patterns:     []string{"*.go"},
		PollInterval: 20 * time.Millisecond,
	}, chunk.AUTO, nil)
	require.NoError(t, err)
	defer li.Stop()

	require.NoError(t, os.Remove(path))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		li.Pump(0)
		if _, tracked := idx.State(path); !tracked {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	_, tracked := idx.State(path)
	assert.False(t, tracked)
}
