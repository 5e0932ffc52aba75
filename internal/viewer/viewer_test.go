package viewer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
)

func writeTempFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestViewFileLineNumberPrefix(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.py", "one\ntwo\nthree\n")

	v := New(dir)
	result, err := v.ViewFile("a.py", 0, 0)
	if err != nil {
		t.Fatalf("ViewFile: %v", err)
	}
	lines := strings.Split(strings.TrimRight(result.Content, "\n"), "\n")
	if lines[0] != "     1\tone" {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if lines[2] != "     3\tthree" {
		t.Fatalf("unexpected third line: %q", lines[2])
	}
}

func TestViewFileLineRange(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	for i := 1; i <= 20; i++ {
		b.WriteString("line\n")
	}
	writeTempFile(t, dir, "a.txt", b.String())

	v := New(dir)
	result, err := v.ViewFile("a.txt", 5, 8)
	if err != nil {
		t.Fatalf("ViewFile: %v", err)
	}
	lines := strings.Split(strings.TrimRight(result.Content, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "     5\t") {
		t.Fatalf("expected range to start at line 5, got %q", lines[0])
	}
}

func TestViewFileNotFound(t *testing.T) {
	dir := t.TempDir()
	v := New(dir)
	_, err := v.ViewFile("missing.go", 0, 0)
	if cferrors.KindOf(err) != cferrors.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestSearchThreeDefsWithContext(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		"def alpha():",  // 1
		"    pass",      // 2
		"",              // 3
		"",              // 4
		"def beta():",   // 5
		"    pass",      // 6
		"",              // 7
		"",              // 8
		"def gamma():",  // 9
	}, "\n") + "\n"
	writeTempFile(t, dir, "mod.py", content)

	v := New(dir)
	result, err := v.Search("mod.py", `^def `, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.MatchCount != 3 {
		t.Fatalf("expected 3 matches, got %d", result.MatchCount)
	}
	if !strings.Contains(result.Content, ">     1\tdef alpha():") {
		t.Fatalf("expected marked match line, got:\n%s", result.Content)
	}
	if !strings.Contains(result.Content, ">     5\tdef beta():") {
		t.Fatalf("expected marked match line for beta, got:\n%s", result.Content)
	}
	if !strings.Contains(result.Content, ">     9\tdef gamma():") {
		t.Fatalf("expected marked match line for gamma, got:\n%s", result.Content)
	}
}

func TestSearchNoMatch(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.go", "package main\n")

	v := New(dir)
	_, err := v.Search("a.go", "nonexistent_pattern", 1)
	if cferrors.KindOf(err) != cferrors.NoMatch {
		t.Fatalf("expected NoMatch, got %v", err)
	}
}

func TestSearchInvalidRegex(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.go", "package main\n")

	v := New(dir)
	_, err := v.Search("a.go", "(unclosed", 1)
	if cferrors.KindOf(err) != cferrors.RegexError {
		t.Fatalf("expected RegexError, got %v", err)
	}
}

func TestViewDirectoryTwoLevels(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub", "deeper"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeTempFile(t, dir, "top.txt", "x")
	writeTempFile(t, dir, filepath.Join("sub", "inner.txt"), "y")
	writeTempFile(t, dir, filepath.Join("sub", "deeper", "hidden.txt"), "z")

	v := New(dir)
	result, err := v.ViewDirectory(".")
	if err != nil {
		t.Fatalf("ViewDirectory: %v", err)
	}

	names := map[string]bool{}
	for _, e := range result.Entries {
		names[e.Name] = true
	}
	if !names["top.txt"] {
		t.Fatalf("expected top.txt in listing: %+v", result.Entries)
	}
	if !names["sub/"] {
		t.Fatalf("expected sub/ in listing: %+v", result.Entries)
	}
	if !names["sub/inner.txt"] {
		t.Fatalf("expected one level of recursion into sub/: %+v", result.Entries)
	}
	if names["sub/deeper/hidden.txt"] {
		t.Fatalf("expected second level not to be listed: %+v", result.Entries)
	}
}
