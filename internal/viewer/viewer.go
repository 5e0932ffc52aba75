// Package viewer implements C9: the Code Viewer. view_file, regex
// search with context windows, and view_directory mirror
// _examples/original_source/services/tools/code_viewer.py's CodeViewer
// class, including its 6-digit line-number prefix and truncation marker.
package viewer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
	"github.com/standardbeagle/contextforge/pkg/pathutil"
)

// MaxFileSize is the largest file view_file will read in full (10MB),
// matching code_viewer.py's MAX_FILE_SIZE.
const MaxFileSize = 10 * 1024 * 1024

// MaxOutputLines bounds how many lines view_file/search emit before
// truncating, matching code_viewer.py's MAX_OUTPUT_LINES.
const MaxOutputLines = 2000

// Viewer reads files scoped to a workspace root.
type Viewer struct {
	root string
}

// New constructs a Viewer rooted at root.
func New(root string) *Viewer {
	return &Viewer{root: root}
}

func (v *Viewer) resolve(path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(v.root, abs)
	}
	abs = filepath.Clean(abs)
	if !pathutil.WithinRoot(abs, v.root) {
		return "", cferrors.New(cferrors.ValidationError, "path %q escapes workspace root", path)
	}
	return abs, nil
}

// ViewFileResult is the outcome of ViewFile.
type ViewFileResult struct {
	Content    string
	TotalLines int
	Truncated  bool
}

// ViewFile renders path with "%6d\t" line-number prefixes, optionally
// scoped to [startLine, endLine] (1-based inclusive, 0 means unbounded),
// truncated to MaxOutputLines.
func (v *Viewer) ViewFile(path string, startLine, endLine int) (*ViewFileResult, error) {
	abs, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	info, statErr := os.Stat(abs)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return nil, cferrors.New(cferrors.NotFound, "file %q not found", path)
		}
		return nil, cferrors.Wrap(cferrors.Internal, statErr, "stat %q", path)
	}
	if info.IsDir() {
		return nil, cferrors.New(cferrors.ValidationError, "%q is a directory", path)
	}
	if info.Size() > MaxFileSize {
		return nil, cferrors.New(cferrors.ValidationError, "file %q exceeds maximum viewable size", path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, cferrors.Wrap(cferrors.Internal, err, "reading %q", path)
	}

	lines := splitLines(string(data))
	totalLines := len(lines)

	start := 0
	end := totalLines
	if startLine > 0 {
		start = startLine - 1
	}
	if endLine > 0 && endLine < totalLines {
		end = endLine
	}
	if start < 0 {
		start = 0
	}
	if start > totalLines {
		start = totalLines
	}
	if end < start {
		end = start
	}

	selected := lines[start:end]
	truncated := false
	if len(selected) > MaxOutputLines {
		selected = selected[:MaxOutputLines]
		truncated = true
	}

	var b strings.Builder
	for i, line := range selected {
		fmt.Fprintf(&b, "%6d\t%s\n", start+i+1, line)
	}
	content := b.String()
	if truncated {
		content += fmt.Sprintf("\n\n<response clipped - showing %d of %d lines>", len(selected), len(lines[start:end]))
	}

	return &ViewFileResult{Content: content, TotalLines: totalLines, Truncated: truncated}, nil
}

// SearchMatch is one regex match with surrounding context.
type SearchMatch struct {
	LineNumber int
	Line       string
}

// SearchResult is the outcome of Search: each match's context window,
// separated by "..." when windows are non-adjacent.
type SearchResult struct {
	Content     string
	MatchCount  int
}

// Search runs pattern over path and returns matched lines (prefixed ">")
// plus contextLines of surrounding context (prefixed " "), with "..."
// between non-adjacent windows, mirroring code_viewer.py's _search_file.
func (v *Viewer) Search(path, pattern string, contextLines int) (*SearchResult, error) {
	abs, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	re, reErr := regexp.Compile(pattern)
	if reErr != nil {
		return nil, cferrors.Wrap(cferrors.RegexError, reErr, "invalid pattern %q", pattern)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cferrors.New(cferrors.NotFound, "file %q not found", path)
		}
		return nil, cferrors.Wrap(cferrors.Internal, err, "reading %q", path)
	}

	lines := splitLines(string(data))
	var matchedIdx []int
	for i, line := range lines {
		if re.MatchString(line) {
			matchedIdx = append(matchedIdx, i)
		}
	}
	if len(matchedIdx) == 0 {
		return nil, cferrors.New(cferrors.NoMatch, "pattern %q matched no lines in %q", pattern, path)
	}

	if contextLines < 0 {
		contextLines = 0
	}

	type window struct{ start, end int }
	windows := make([]window, 0, len(matchedIdx))
	for _, idx := range matchedIdx {
		start := idx - contextLines
		if start < 0 {
			start = 0
		}
		end := idx + contextLines
		if end >= len(lines) {
			end = len(lines) - 1
		}
		windows = append(windows, window{start, end})
	}

	merged := []window{windows[0]}
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if w.start <= last.end+1 {
			if w.end > last.end {
				last.end = w.end
			}
		} else {
			merged = append(merged, w)
		}
	}

	matchSet := make(map[int]bool, len(matchedIdx))
	for _, idx := range matchedIdx {
		matchSet[idx] = true
	}

	var b strings.Builder
	for i, w := range merged {
		if i > 0 {
			b.WriteString("...\n")
		}
		for ln := w.start; ln <= w.end; ln++ {
			prefix := " "
			if matchSet[ln] {
				prefix = ">"
			}
			fmt.Fprintf(&b, "%s%6d\t%s\n", prefix, ln+1, lines[ln])
		}
	}

	return &SearchResult{Content: b.String(), MatchCount: len(matchedIdx)}, nil
}

// DirEntry is one entry in a ViewDirectory result.
type DirEntry struct {
	Name  string
	IsDir bool
	Size  string // human-readable, empty for directories
}

// ViewDirectoryResult is the outcome of ViewDirectory.
type ViewDirectoryResult struct {
	Entries []DirEntry
}

var defaultIgnore = map[string]bool{
	".git": true, "node_modules": true, "__pycache__": true,
	".venv": true, "venv": true, ".contextforge": true,
}

// ViewDirectory lists path two levels deep (entries, plus one level of
// subdirectory entries), skipping defaultIgnore names, matching
// code_viewer.py's _list_directory.
func (v *Viewer) ViewDirectory(path string) (*ViewDirectoryResult, error) {
	abs, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	info, statErr := os.Stat(abs)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return nil, cferrors.New(cferrors.NotFound, "directory %q not found", path)
		}
		return nil, cferrors.Wrap(cferrors.Internal, statErr, "stat %q", path)
	}
	if !info.IsDir() {
		return nil, cferrors.New(cferrors.ValidationError, "%q is not a directory", path)
	}

	entries, err := listLevel(abs, 0)
	if err != nil {
		return nil, cferrors.Wrap(cferrors.Internal, err, "listing %q", path)
	}
	return &ViewDirectoryResult{Entries: entries}, nil
}

func listLevel(dir string, depth int) ([]DirEntry, error) {
	raw, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].Name() < raw[j].Name() })

	var out []DirEntry
	for _, entry := range raw {
		if defaultIgnore[entry.Name()] {
			continue
		}
		if entry.IsDir() {
			out = append(out, DirEntry{Name: entry.Name() + "/", IsDir: true})
			if depth < 1 {
				children, err := listLevel(filepath.Join(dir, entry.Name()), depth+1)
				if err == nil {
					for _, child := range children {
						child.Name = entry.Name() + "/" + child.Name
						out = append(out, child)
					}
				}
			}
			continue
		}
		info, err := entry.Info()
		var size string
		if err == nil {
			size = formatSize(info.Size())
		}
		out = append(out, DirEntry{Name: entry.Name(), Size: size})
	}
	return out, nil
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for bytes := n / unit; bytes >= unit; bytes /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func splitLines(s string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
