package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/contextforge/internal/chunk"
	"github.com/standardbeagle/contextforge/internal/vectorindex"
)

func newTestIndexer() (*Indexer, *vectorindex.InMemory) {
	vi := vectorindex.NewInMemory(vectorindex.NewHashingEmbedder(64))
	return New(chunk.New(4000), vi), vi
}

func TestIndexFileFullIndexFirstTime(t *testing.T) {
	idx, vi := newTestIndexer()
	src := "package a\n\nfunc One() {}\n\nfunc Two() {}\n"

	chunks, err := idx.IndexFile("a.go", src, "go", chunk.REGEX, false)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
	assert.Greater(t, vi.Stats().TotalVectors, 0)

	state, ok := idx.State("a.go")
	require.True(t, ok)
	assert.Equal(t, chunks, state.Chunks)
}

func TestIndexFileNoopOnIdenticalContent(t *testing.T) {
	idx, _ := newTestIndexer()
	src := "package a\n\nfunc One() {}\n"

	first, err := idx.IndexFile("a.go", src, "go", chunk.REGEX, false)
	require.NoError(t, err)
	second, err := idx.IndexFile("a.go", src, "go", chunk.REGEX, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIndexFileIncrementalReindexesOnChange(t *testing.T) {
	idx, vi := newTestIndexer()
	v1 := "package a\n\nfunc One() {}\n"
	v2 := "package a\n\nfunc One() {}\n\nfunc Two() {}\n"

	_, err := idx.IndexFile("a.go", v1, "go", chunk.REGEX, false)
	require.NoError(t, err)
	before := vi.Stats().TotalVectors

	chunks, err := idx.IndexFile("a.go", v2, "go", chunk.REGEX, false)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
	assert.Greater(t, vi.Stats().TotalVectors, before-1)
}

func TestRemoveFileDropsStateAndVectors(t *testing.T) {
	idx, vi := newTestIndexer()
	_, err := idx.IndexFile("a.go", "package a\n\nfunc One() {}\n", "go", chunk.REGEX, false)
	require.NoError(t, err)
	require.Greater(t, vi.Stats().TotalVectors, 0)

	require.NoError(t, idx.RemoveFile("a.go"))
	_, ok := idx.State("a.go")
	assert.False(t, ok)
	assert.Equal(t, 0, vi.Stats().TotalVectors)
}
