package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/contextforge/internal/types"
)

func chunkFor(path, content string, start, end int) InputChunk {
	return InputChunk{Path: path, Chunk: types.CodeChunk{Content: content, StartLine: start, EndLine: end}}
}

func TestHashingEmbedderDeterministic(t *testing.T) {
	e := NewHashingEmbedder(64)
	v1, err := e.Encode([]string{"func Hello() { return }"})
	require.NoError(t, err)
	v2, err := e.Encode([]string{"func Hello() { return }"})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestInsertAndSearchRanksRelevant(t *testing.T) {
	idx := NewInMemory(NewHashingEmbedder(128))
	_, err := idx.Insert([]InputChunk{
		chunkFor("a.go", "func ParseConfig(path string) error { return nil }", 1, 1),
		chunkFor("b.go", "func RenderTemplate(name string) string { return name }", 1, 1),
	})
	require.NoError(t, err)

	results, err := idx.Search("parse configuration file", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Rank)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestDeleteByPathRemovesOnlyThatPath(t *testing.T) {
	idx := NewInMemory(NewHashingEmbedder(64))
	_, err := idx.Insert([]InputChunk{
		chunkFor("a.go", "alpha", 1, 1),
		chunkFor("b.go", "beta", 1, 1),
	})
	require.NoError(t, err)

	require.NoError(t, idx.DeleteByPath("a.go"))
	stats := idx.Stats()
	assert.Equal(t, 1, stats.TotalVectors)
}

func TestInsertUpsertsSameKey(t *testing.T) {
	idx := NewInMemory(NewHashingEmbedder(64))
	c := chunkFor("a.go", "same content", 1, 5)
	_, err := idx.Insert([]InputChunk{c})
	require.NoError(t, err)
	_, err = idx.Insert([]InputChunk{c})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Stats().TotalVectors)
}

func TestClearEmptiesIndex(t *testing.T) {
	idx := NewInMemory(NewHashingEmbedder(64))
	_, err := idx.Insert([]InputChunk{chunkFor("a.go", "x", 1, 1)})
	require.NoError(t, err)
	idx.Clear()
	assert.Equal(t, 0, idx.Stats().TotalVectors)
}
