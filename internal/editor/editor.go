// Package editor implements C8: the File Editor. str_replace, save_file,
// and remove_files mirror
// _examples/original_source/services/tools/file_editor.py's FileEditor
// class: protected-path guards, content-hashed backups under
// .contextforge/backups/, and workspace-root path resolution via
// pkg/pathutil.WithinRoot.
package editor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
	"github.com/standardbeagle/contextforge/pkg/pathutil"
)

// protectedPatterns mirrors file_editor.py's PROTECTED_PATTERNS: paths
// matching any of these are refused by remove_files unless force is set.
var protectedPatterns = []string{
	".git", ".gitignore", ".env", "node_modules", "__pycache__",
	".venv", "venv", ".contextforge",
	"package-lock.json", "yarn.lock", "poetry.lock", "Pipfile.lock",
}

// Editor performs text edits scoped to a workspace root.
type Editor struct {
	root              string
	backupRetention   time.Duration
}

// New constructs an Editor rooted at root, retaining backups for
// retentionDays (0 disables age-based purge).
func New(root string, retentionDays int) *Editor {
	var retention time.Duration
	if retentionDays > 0 {
		retention = time.Duration(retentionDays) * 24 * time.Hour
	}
	return &Editor{root: root, backupRetention: retention}
}

// StrReplaceResult is the outcome of a single StrReplace entry.
type StrReplaceResult struct {
	Old        string
	Replaced   bool
	LineNumber int
	Snippet    string
}

// StrReplaceEntry is one find/replace pair scoped to an optional line range.
type StrReplaceEntry struct {
	OldStr    string
	NewStr    string
	StartLine int // 1-based, 0 means unbounded
	EndLine   int // 1-based inclusive, 0 means unbounded
}

func (e *Editor) resolve(path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(e.root, abs)
	}
	abs = filepath.Clean(abs)
	if !pathutil.WithinRoot(abs, e.root) {
		return "", cferrors.New(cferrors.ValidationError, "path %q escapes workspace root", path)
	}
	return abs, nil
}

func isProtected(relPath string) bool {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	for _, part := range parts {
		for _, pattern := range protectedPatterns {
			if part == pattern {
				return true
			}
		}
	}
	return false
}

// StrReplace applies entries to path in order. Each entry must match
// exactly once within its (optional) line range; no match reports
// NoMatch, more than one match reports Conflict with the matched line
// numbers so the caller can disambiguate with start_line/end_line.
func (e *Editor) StrReplace(path string, entries []StrReplaceEntry) ([]StrReplaceResult, error) {
	abs, err := e.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cferrors.New(cferrors.NotFound, "file %q not found", path)
		}
		return nil, cferrors.Wrap(cferrors.Internal, err, "reading %q", path)
	}

	original := string(data)
	content := original
	results := make([]StrReplaceResult, 0, len(entries))

	for _, entry := range entries {
		lines := strings.Split(content, "\n")
		start := 0
		end := len(lines)
		if entry.StartLine > 0 {
			start = entry.StartLine - 1
		}
		if entry.EndLine > 0 && entry.EndLine <= len(lines) {
			end = entry.EndLine
		}
		if start < 0 || start > len(lines) || end < start {
			return nil, cferrors.New(cferrors.ValidationError, "line range %d-%d out of bounds for %q", entry.StartLine, entry.EndLine, path)
		}

		scoped := strings.Join(lines[start:end], "\n")
		count := strings.Count(scoped, entry.OldStr)
		if count == 0 {
			return nil, cferrors.New(cferrors.NoMatch, "no match for replacement text in %q", path).
				WithDetail("old_str", entry.OldStr)
		}
		if count > 1 {
			matchedLines := matchLineNumbers(scoped, entry.OldStr, start)
			return nil, cferrors.New(cferrors.Conflict, "multiple matches (%d) for replacement text in %q", count, path).
				WithDetail("old_str", entry.OldStr).WithDetail("matched_lines", matchedLines)
		}

		idx := strings.Index(scoped, entry.OldStr)
		lineNumber := start + 1 + strings.Count(scoped[:idx], "\n")

		newScoped := strings.Replace(scoped, entry.OldStr, entry.NewStr, 1)
		lines = append(lines[:start], append(strings.Split(newScoped, "\n"), lines[end:]...)...)
		content = strings.Join(lines, "\n")

		results = append(results, StrReplaceResult{
			Old:        entry.OldStr,
			Replaced:   true,
			LineNumber: lineNumber,
			Snippet:    snippet(content, lineNumber),
		})
	}

	if content == original {
		return results, nil
	}

	if _, err := e.backup(abs); err != nil {
		return nil, err
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return nil, cferrors.Wrap(cferrors.Internal, err, "writing %q", path)
	}
	return results, nil
}

// matchLineNumbers returns the 1-based file line number of every
// occurrence of needle within scoped, offset by lineOffset (the number of
// lines preceding the scoped region), so callers can disambiguate a
// multiple-match Conflict error with start_line/end_line per spec S1.
func matchLineNumbers(scoped, needle string, lineOffset int) []int {
	var lines []int
	for searchFrom := 0; ; {
		idx := strings.Index(scoped[searchFrom:], needle)
		if idx < 0 {
			break
		}
		idx += searchFrom
		lines = append(lines, lineOffset+1+strings.Count(scoped[:idx], "\n"))
		searchFrom = idx + len(needle)
	}
	return lines
}

// snippet returns a small window of context around lineNumber (1-based),
// mirroring file_editor.py's _generate_snippet (4 lines before/after).
func snippet(content string, lineNumber int) string {
	lines := strings.Split(content, "\n")
	const window = 4
	start := lineNumber - 1 - window
	if start < 0 {
		start = 0
	}
	end := lineNumber + window
	if end > len(lines) {
		end = len(lines)
	}
	var b strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, lines[i])
	}
	return b.String()
}

// SaveFile writes content to path, creating parent directories and a
// backup of any pre-existing file.
func (e *Editor) SaveFile(path, content string, overwrite bool) error {
	abs, err := e.resolve(path)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(abs); statErr == nil {
		if !overwrite {
			return cferrors.New(cferrors.Conflict, "file %q already exists", path)
		}
		if _, err := e.backup(abs); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return cferrors.Wrap(cferrors.Internal, err, "creating parent directories for %q", path)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return cferrors.Wrap(cferrors.Internal, err, "writing %q", path)
	}
	return nil
}

// RemoveFilesResult reports the outcome of RemoveFiles.
type RemoveFilesResult struct {
	Removed []string
	Skipped map[string]string // path -> reason
}

// RemoveFiles deletes the given paths, refusing protected paths unless
// force is set, and refusing directories unless allowDirectories is set.
func (e *Editor) RemoveFiles(paths []string, dryRun, force, allowDirectories bool) (*RemoveFilesResult, error) {
	result := &RemoveFilesResult{Skipped: map[string]string{}}

	for _, path := range paths {
		abs, err := e.resolve(path)
		if err != nil {
			result.Skipped[path] = err.Error()
			continue
		}
		rel, relErr := filepath.Rel(e.root, abs)
		if relErr != nil {
			rel = path
		}
		if !force && isProtected(rel) {
			result.Skipped[path] = "protected path"
			continue
		}

		info, statErr := os.Stat(abs)
		if statErr != nil {
			result.Skipped[path] = "not found"
			continue
		}
		if info.IsDir() && !allowDirectories {
			result.Skipped[path] = "is a directory"
			continue
		}

		if dryRun {
			result.Removed = append(result.Removed, path)
			continue
		}

		if !info.IsDir() {
			if _, err := e.backup(abs); err != nil {
				return nil, err
			}
		}
		if err := os.RemoveAll(abs); err != nil {
			result.Skipped[path] = err.Error()
			continue
		}
		result.Removed = append(result.Removed, path)
	}

	return result, nil
}

// backup copies abs into .contextforge/backups/ with a
// name.YYYYMMDD_HHMMSS.hash8.bak name, per spec §4.8.
func (e *Editor) backup(abs string) (string, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", cferrors.Wrap(cferrors.Internal, err, "reading %q for backup", abs)
	}

	backupDir := filepath.Join(e.root, ".contextforge", "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", cferrors.Wrap(cferrors.Internal, err, "creating backup directory")
	}

	sum := sha256.Sum256(data)
	hash8 := hex.EncodeToString(sum[:])[:8]
	timestamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("%s.%s.%s.bak", filepath.Base(abs), timestamp, hash8)
	backupPath := filepath.Join(backupDir, name)

	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", cferrors.Wrap(cferrors.Internal, err, "writing backup")
	}

	if e.backupRetention > 0 {
		e.purgeOldBackups(backupDir)
	}
	return backupPath, nil
}

// purgeOldBackups deletes backups older than the configured retention
// window. Best-effort: errors are ignored since this is housekeeping,
// not a primary operation.
func (e *Editor) purgeOldBackups(backupDir string) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-e.backupRetention)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(backupDir, entry.Name()))
		}
	}
}

// ListBackups returns backup file names under .contextforge/backups/,
// newest first.
func (e *Editor) ListBackups() ([]string, error) {
	backupDir := filepath.Join(e.root, ".contextforge", "backups")
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cferrors.Wrap(cferrors.Internal, err, "listing backups")
	}
	type backupEntry struct {
		name string
		mod  time.Time
	}
	backups := make([]backupEntry, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backupEntry{entry.Name(), info.ModTime()})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].mod.After(backups[j].mod) })
	names := make([]string, len(backups))
	for i, b := range backups {
		names[i] = b.name
	}
	return names, nil
}
