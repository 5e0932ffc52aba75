package editor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestStrReplaceAmbiguousMatch(t *testing.T) {
	dir := t.TempDir()
	content := "line1\nprint(\"Hello, World!\")\nline3\nline4\nline5\nline6\nprint(\"Hello, World!\")\nline8\n"
	writeTempFile(t, dir, "greet.py", content)

	e := New(dir, 30)
	_, err := e.StrReplace("greet.py", []StrReplaceEntry{
		{OldStr: `print("Hello, World!")`, NewStr: `print("Goodbye!")`},
	})
	if err == nil {
		t.Fatal("expected error for ambiguous match")
	}
	if cferrors.KindOf(err) != cferrors.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
	ce, ok := err.(*cferrors.Error)
	if !ok {
		t.Fatalf("expected *cferrors.Error, got %T", err)
	}
	lines, _ := ce.Details["matched_lines"].([]int)
	if len(lines) != 2 || lines[0] != 2 || lines[1] != 7 {
		t.Fatalf("expected matched_lines [2 7], got %v", lines)
	}
}

func TestStrReplaceScopedToLineRange(t *testing.T) {
	dir := t.TempDir()
	content := "line1\nprint(\"Hello, World!\")\nline3\nline4\nline5\nline6\nprint(\"Hello, World!\")\nline8\n"
	writeTempFile(t, dir, "greet.py", content)

	e := New(dir, 30)
	results, err := e.StrReplace("greet.py", []StrReplaceEntry{
		{OldStr: `print("Hello, World!")`, NewStr: `print("Goodbye!")`, StartLine: 1, EndLine: 3},
	})
	if err != nil {
		t.Fatalf("StrReplace: %v", err)
	}
	if len(results) != 1 || results[0].LineNumber != 2 {
		t.Fatalf("unexpected results: %+v", results)
	}

	out, _ := os.ReadFile(filepath.Join(dir, "greet.py"))
	lines := strings.Split(string(out), "\n")
	if lines[1] != `print("Goodbye!")` {
		t.Fatalf("expected line 2 replaced, got %q", lines[1])
	}
	if lines[6] != `print("Hello, World!")` {
		t.Fatalf("expected line 7 untouched, got %q", lines[6])
	}
}

func TestStrReplaceNoMatch(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.txt", "hello world\n")

	e := New(dir, 30)
	_, err := e.StrReplace("a.txt", []StrReplaceEntry{{OldStr: "nonexistent", NewStr: "x"}})
	if cferrors.KindOf(err) != cferrors.NoMatch {
		t.Fatalf("expected NoMatch, got %v", err)
	}
}

func TestStrReplaceCreatesBackup(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.txt", "hello world\n")

	e := New(dir, 30)
	if _, err := e.StrReplace("a.txt", []StrReplaceEntry{{OldStr: "hello", NewStr: "goodbye"}}); err != nil {
		t.Fatalf("StrReplace: %v", err)
	}

	backups, err := e.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %d: %v", len(backups), backups)
	}
	if !strings.HasPrefix(backups[0], "a.txt.") || !strings.HasSuffix(backups[0], ".bak") {
		t.Fatalf("unexpected backup name: %q", backups[0])
	}
}

func TestSaveFileRefusesOverwriteWithoutFlag(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.txt", "existing\n")

	e := New(dir, 30)
	err := e.SaveFile("a.txt", "new content\n", false)
	if cferrors.KindOf(err) != cferrors.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestSaveFileCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, 30)
	if err := e.SaveFile("nested/dir/new.txt", "content\n", false); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "nested", "dir", "new.txt"))
	if err != nil {
		t.Fatalf("reading created file: %v", err)
	}
	if string(data) != "content\n" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestRemoveFilesRefusesProtectedPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeTempFile(t, dir, "node_modules/pkg.js", "x")

	e := New(dir, 30)
	result, err := e.RemoveFiles([]string{"node_modules/pkg.js"}, false, false, false)
	if err != nil {
		t.Fatalf("RemoveFiles: %v", err)
	}
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", result.Removed)
	}
	if result.Skipped["node_modules/pkg.js"] == "" {
		t.Fatalf("expected skip reason recorded")
	}
}

func TestRemoveFilesDryRun(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.txt", "content")

	e := New(dir, 30)
	result, err := e.RemoveFiles([]string{"a.txt"}, true, false, false)
	if err != nil {
		t.Fatalf("RemoveFiles: %v", err)
	}
	if len(result.Removed) != 1 {
		t.Fatalf("expected dry-run removal report, got %v", result.Removed)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "a.txt")); statErr != nil {
		t.Fatalf("expected file to still exist after dry run: %v", statErr)
	}
}

func TestRemoveFilesRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, 30)
	result, err := e.RemoveFiles([]string{"../../etc/passwd"}, false, true, false)
	if err != nil {
		t.Fatalf("RemoveFiles returned error instead of reporting skip: %v", err)
	}
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", result.Removed)
	}
	if result.Skipped["../../etc/passwd"] == "" {
		t.Fatalf("expected path escape to be recorded as skipped")
	}
}
