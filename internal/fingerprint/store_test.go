package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
	"github.com/standardbeagle/contextforge/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCaptureDeterministic(t *testing.T) {
	path := writeTemp(t, "line one\nline two\n")
	s := New(time.Hour, 100, 100)

	fp1, err := s.Capture(path)
	require.NoError(t, err)
	fp2, err := s.Capture(path)
	require.NoError(t, err)

	assert.Equal(t, fp1.SHA256, fp2.SHA256)
	assert.Equal(t, 2, fp1.LineCount)
}

func TestCheckDriftTransitions(t *testing.T) {
	path := writeTemp(t, "v1\n")
	s := New(time.Hour, 100, 100)

	status, _, _, err := s.CheckDrift(path)
	require.NoError(t, err)
	assert.Equal(t, types.NotTracked, status)

	fp, err := s.Capture(path)
	require.NoError(t, err)
	s.Register(fp)

	status, _, _, err = s.CheckDrift(path)
	require.NoError(t, err)
	assert.Equal(t, types.NoDrift, status)

	require.NoError(t, os.WriteFile(path, []byte("v2\n"), 0644))
	status, oldFP, newFP, err := s.CheckDrift(path)
	require.NoError(t, err)
	assert.Equal(t, types.Drifted, status)
	assert.NotEqual(t, oldFP.SHA256, newFP.SHA256)
}

func TestStoreContentRoundTrip(t *testing.T) {
	s := New(time.Hour, 100, 100)
	content := "alpha\nbeta\ngamma\n"
	id, err := s.StoreContent(content, "test", nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(id), 8)

	got, err := s.ViewRange(id, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "alpha\nbeta\ngamma", got)
}

func TestViewRangeInvalid(t *testing.T) {
	s := New(time.Hour, 100, 100)
	id, err := s.StoreContent("a\nb\n", "test", nil)
	require.NoError(t, err)

	_, err = s.ViewRange(id, 0, 1)
	require.Error(t, err)
	assert.True(t, cferrors.Is(err, cferrors.ValidationError))

	_, err = s.ViewRange(id, 3, 1)
	require.Error(t, err)

	got, err := s.ViewRange(id, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", got)
}

func TestEvictionByCountCap(t *testing.T) {
	s := New(time.Hour, 2, 100)
	id1, err := s.StoreContent("one", "t", nil)
	require.NoError(t, err)
	_, err = s.StoreContent("two", "t", nil)
	require.NoError(t, err)
	_, err = s.StoreContent("three", "t", nil)
	require.NoError(t, err)

	_, err = s.ViewRange(id1, 1, 1)
	assert.Error(t, err, "oldest reference should have been evicted")
}

func TestEvictionByTTL(t *testing.T) {
	s := New(time.Millisecond, 100, 100)
	id, err := s.StoreContent("one", "t", nil)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = s.ViewRange(id, 1, 1)
	assert.Error(t, err)
}

func TestSearchWithContext(t *testing.T) {
	s := New(time.Hour, 100, 100)
	content := "def a():\n    pass\ndef b():\n    pass\n"
	id, err := s.StoreContent(content, "t", nil)
	require.NoError(t, err)

	matches, capped, err := s.Search(id, `def [a-z]+\(`, SearchOptions{UseRegex: true, ContextLines: 1})
	require.NoError(t, err)
	assert.False(t, capped)
	require.Len(t, matches, 2)
	assert.Equal(t, 1, matches[0].LineNumber)
	assert.Equal(t, 3, matches[1].LineNumber)
}

func TestSearchInvalidRegex(t *testing.T) {
	s := New(time.Hour, 100, 100)
	id, err := s.StoreContent("anything", "t", nil)
	require.NoError(t, err)

	_, _, err = s.Search(id, "(unterminated", SearchOptions{UseRegex: true})
	require.Error(t, err)
	assert.True(t, cferrors.Is(err, cferrors.RegexError))
}
