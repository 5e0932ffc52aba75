package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/contextforge/internal/types"
)

func TestParseModeRoundTrip(t *testing.T) {
	for _, s := range []string{"AUTO", "auto", "TREE_SITTER", "REGEX", ""} {
		_, err := ParseMode(s)
		require.NoError(t, err)
	}
	_, err := ParseMode("BOGUS")
	assert.Error(t, err)
}

func TestLanguageForPath(t *testing.T) {
	assert.Equal(t, "go", LanguageForPath("a/b.go"))
	assert.Equal(t, "python", LanguageForPath("a/b.py"))
	assert.Equal(t, "javascript", LanguageForPath("a/b.jsx"))
	assert.Equal(t, "typescript", LanguageForPath("a/b.tsx"))
	assert.Equal(t, "markdown", LanguageForPath("README.md"))
	assert.Equal(t, "", LanguageForPath("a/b.unknown"))
}

func TestChunkGoAST(t *testing.T) {
	src := `package main

func Hello(name string) string {
	return "hi " + name
}

func World() {
}
`
	c := New(4000)
	chunks, err := c.Chunk("x.go", []byte(src), TREE_SITTER, true)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var names []string
	for _, ch := range chunks {
		if ch.ChunkType == types.ChunkFunction {
			names = append(names, ch.Name)
		}
	}
	assert.Contains(t, names, "Hello")
	assert.Contains(t, names, "World")
}

func TestChunkGoRegexFallback(t *testing.T) {
	src := `package main

import (
	"fmt"
)

func Add(a, b int) int {
	return a + b
}
`
	c := New(4000)
	chunks, err := c.Chunk("x.go", []byte(src), REGEX, false)
	require.NoError(t, err)

	var foundFunc, foundImport bool
	for _, ch := range chunks {
		if ch.ChunkType == types.ChunkFunction && ch.Name == "Add" {
			foundFunc = true
		}
		if ch.ChunkType == types.ChunkImport {
			foundImport = true
		}
	}
	assert.True(t, foundFunc)
	assert.True(t, foundImport)
}

func TestChunkPythonRegex(t *testing.T) {
	src := `"""Module doc."""
import os


def greet(name):
    return "hi " + name


class Greeter:
    def greet(self):
        return "hi"
`
	c := New(4000)
	chunks, err := c.Chunk("x.py", []byte(src), REGEX, false)
	require.NoError(t, err)

	var gotFunc, gotClass, gotDoc bool
	for _, ch := range chunks {
		switch ch.ChunkType {
		case types.ChunkFunction:
			if ch.Name == "greet" {
				gotFunc = true
			}
		case types.ChunkClass:
			if ch.Name == "Greeter" {
				gotClass = true
			}
		case types.ChunkDocstring:
			gotDoc = true
		}
	}
	assert.True(t, gotFunc)
	assert.True(t, gotClass)
	assert.True(t, gotDoc)
}

func TestChunkMarkdownHeadings(t *testing.T) {
	src := "# Title\n\nIntro text.\n\n## Section\n\nBody text.\n"
	c := New(4000)
	chunks, err := c.Chunk("x.md", []byte(src), AUTO, false)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Title", chunks[0].Name)
	assert.Equal(t, "Section", chunks[1].Name)
}

func TestSplitOversizedPreservesLineRanges(t *testing.T) {
	var lines []string
	for i := 0; i < 100; i++ {
		lines = append(lines, strings.Repeat("x", 20))
	}
	big := types.CodeChunk{
		Content:   strings.Join(lines, "\n"),
		ChunkType: types.ChunkFunction,
		Name:      "big",
		StartLine: 10,
		EndLine:   109,
	}
	parts := splitOversized([]types.CodeChunk{big}, 100)
	require.Greater(t, len(parts), 1)

	assert.Equal(t, 10, parts[0].StartLine)
	for i := 1; i < len(parts); i++ {
		assert.Equal(t, parts[i-1].EndLine+1, parts[i].StartLine)
		assert.Equal(t, "big_part"+itoaTest(i+1), parts[i].Name)
	}
	assert.Equal(t, 109, parts[len(parts)-1].EndLine)
}

func itoaTest(n int) string {
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	return string(buf)
}
