package gitretrieval

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	return dir
}

func TestSearchNotARepository(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, 5*time.Second, 100)
	_, err := r.Search("fix", SearchOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if cferrors.KindOf(err) != cferrors.NotAGitRepository {
		t.Fatalf("expected NotAGitRepository, got %v", err)
	}
}

func TestSearchNoCommits(t *testing.T) {
	dir := initRepo(t)
	r := New(dir, 5*time.Second, 100)
	_, err := r.Search("fix", SearchOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if cferrors.KindOf(err) != cferrors.NoCommits {
		t.Fatalf("expected NoCommits, got %v", err)
	}
}

func TestSearchRelevanceRanking(t *testing.T) {
	dir := initRepo(t)

	writeAndCommit(t, dir, "a.txt", "hello", "fix authentication bug in login flow")
	writeAndCommit(t, dir, "b.txt", "world", "unrelated cleanup")
	writeAndCommit(t, dir, "c.txt", "again", "add login retry, mentions authentication too")

	r := New(dir, 5*time.Second, 100)
	result, err := r.Search("authentication login", SearchOptions{MaxResults: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result.Commits) != 2 {
		t.Fatalf("expected 2 matching commits, got %d: %+v", len(result.Commits), result.Commits)
	}
	if result.Commits[0].RelevanceScore < result.Commits[1].RelevanceScore {
		t.Fatalf("expected descending relevance order, got %v then %v",
			result.Commits[0].RelevanceScore, result.Commits[1].RelevanceScore)
	}
}

func TestGetCommit(t *testing.T) {
	dir := initRepo(t)
	writeAndCommit(t, dir, "a.txt", "hello", "initial commit")

	r := New(dir, 5*time.Second, 100)
	out, err := r.run(dir, "rev-parse", "HEAD")
	if err != nil {
		t.Fatalf("rev-parse: %v", err)
	}
	hash := trimNL(out)

	commit, err := r.GetCommit(dir, hash)
	if err != nil {
		t.Fatalf("GetCommit: %v", err)
	}
	if commit.Subject != "initial commit" {
		t.Fatalf("unexpected subject: %q", commit.Subject)
	}
}

func TestBlame(t *testing.T) {
	dir := initRepo(t)
	writeAndCommit(t, dir, "a.txt", "line one\nline two\nline three\n", "add a.txt")

	r := New(dir, 5*time.Second, 100)
	lines, err := r.Blame(dir, "a.txt", 0, 0)
	if err != nil {
		t.Fatalf("Blame: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 blame lines, got %d", len(lines))
	}
	if lines[0].Content != "line one" {
		t.Fatalf("unexpected content: %q", lines[0].Content)
	}
	if lines[0].Author != "Test" {
		t.Fatalf("unexpected author: %q", lines[0].Author)
	}
}

func TestDiff(t *testing.T) {
	dir := initRepo(t)
	writeAndCommit(t, dir, "a.txt", "v1\n", "v1")
	writeAndCommit(t, dir, "a.txt", "v2\n", "v2")

	r := New(dir, 5*time.Second, 100)
	out, err := r.run(dir, "rev-list", "HEAD")
	if err != nil {
		t.Fatalf("rev-list: %v", err)
	}
	hashes := splitLines(trimNL(out))
	if len(hashes) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(hashes))
	}

	diff, err := r.Diff(dir, hashes[1], hashes[0], "", 3)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if diff.Insertions == 0 || diff.Deletions == 0 {
		t.Fatalf("expected both insertions and deletions, got +%d/-%d", diff.Insertions, diff.Deletions)
	}
	if len(diff.Files) != 1 || diff.Files[0].Path != "a.txt" {
		t.Fatalf("unexpected files: %+v", diff.Files)
	}
}

func writeAndCommit(t *testing.T, dir, name, content, message string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	runGit(t, dir, "add", name)
	runGit(t, dir, "commit", "-q", "-m", message)
}

func trimNL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
