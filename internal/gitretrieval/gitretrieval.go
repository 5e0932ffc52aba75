// Package gitretrieval implements C10: relevance-ranked commit search,
// blame, and diff retrieval. Every operation shells out to the git binary
// in the repository root and returns structured data; the exec.CommandContext
// + piped-stdio idiom is grounded on
// _examples/standardbeagle-lci/internal/git/provider.go, repurposed from
// that package's diff-scope analysis onto commit search/blame/diff.
package gitretrieval

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/surgebase/porter2"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
)

// Commit is one entry in a search result or the lone result of GetCommit.
type Commit struct {
	Hash           string
	ShortHash      string
	Author         string
	AuthorEmail    string
	Date           string
	Subject        string
	Message        string
	FilesChanged   []string
	Insertions     int
	Deletions      int
	DiffPreview    string
	RelevanceScore float64
}

// BlameLine is one line of a git blame --line-porcelain result.
type BlameLine struct {
	LineNumber  int
	CommitHash  string
	Author      string
	AuthorEmail string
	Date        string
	Content     string
}

// FileChange is one file's aggregate +/- counts in a Diff result.
type FileChange struct {
	Path       string
	Insertions int
	Deletions  int
}

// DiffResult is the structured output of the Diff operation.
type DiffResult struct {
	FromRef    string
	ToRef      string
	Raw        string
	Files      []FileChange
	Insertions int
	Deletions  int
}

// SearchOptions configures Search.
type SearchOptions struct {
	RepoPath      string
	MaxResults    int
	Author        string
	DateAfter     string
	DateBefore    string
	Branch        string
	Tag           string
	PathFilter    string
	IncludeDiffs  bool
	DiffContext   int
	MaxDiffLength int
}

// SearchResult is the structured output of Search.
type SearchResult struct {
	Commits              []Commit
	TotalCommitsSearched int
}

// Retrieval wraps git commands scoped to a workspace root, with a 30s
// per-command timeout (spec §4.10/§5).
type Retrieval struct {
	workspaceRoot string
	timeout       time.Duration
	scanLimit     int
}

// New constructs a Retrieval rooted at workspaceRoot.
func New(workspaceRoot string, timeout time.Duration, scanLimit int) *Retrieval {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if scanLimit <= 0 {
		scanLimit = 500
	}
	return &Retrieval{workspaceRoot: workspaceRoot, timeout: timeout, scanLimit: scanLimit}
}

func (r *Retrieval) resolve(path string) string {
	if path == "" || path == "." {
		return r.workspaceRoot
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.workspaceRoot, path)
}

func (r *Retrieval) run(cwd string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", cferrors.New(cferrors.Timeout, "git %s timed out after %s", strings.Join(args, " "), r.timeout)
		}
		if _, ok := err.(*exec.Error); ok {
			return "", cferrors.Wrap(cferrors.Internal, err, "git is not installed")
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", cferrors.New(cferrors.Internal, "git %s: %s", strings.Join(args, " "), msg)
	}
	return stdout.String(), nil
}

// isRepo reports whether repoPath resolves to a git working tree.
func (r *Retrieval) isRepo(repoPath string) bool {
	_, err := r.run(repoPath, "rev-parse", "--git-dir")
	return err == nil
}

func (r *Retrieval) commitCount(repoPath string) int {
	out, err := r.run(repoPath, "rev-list", "--count", "HEAD")
	if err != nil {
		return 0
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(out))
	if convErr != nil {
		return 0
	}
	return n
}

const logFormat = "HASH:%H%nSHORT:%h%nAUTHOR:%an%nEMAIL:%ae%nDATE:%aI%nSUBJECT:%s%nBODY:%b%n---COMMIT_END---"

type rawCommit struct {
	hash, short, author, email, date, subject, body string
}

func parseCommitLog(output string) []rawCommit {
	var commits []rawCommit
	for _, entry := range strings.Split(output, "\n---COMMIT_END---\n") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		var c rawCommit
		for _, line := range strings.Split(entry, "\n") {
			switch {
			case strings.HasPrefix(line, "HASH:"):
				c.hash = strings.TrimSpace(line[5:])
			case strings.HasPrefix(line, "SHORT:"):
				c.short = strings.TrimSpace(line[6:])
			case strings.HasPrefix(line, "AUTHOR:"):
				c.author = strings.TrimSpace(line[7:])
			case strings.HasPrefix(line, "EMAIL:"):
				c.email = strings.TrimSpace(line[6:])
			case strings.HasPrefix(line, "DATE:"):
				c.date = strings.TrimSpace(line[5:])
			case strings.HasPrefix(line, "SUBJECT:"):
				c.subject = strings.TrimSpace(line[8:])
			case strings.HasPrefix(line, "BODY:"):
				c.body = strings.TrimSpace(line[5:])
			}
		}
		if c.hash != "" {
			commits = append(commits, c)
		}
	}
	return commits
}

var wordPattern = regexp.MustCompile(`\w+`)

// relevance scores a commit against the query per spec §4.10: whole-query
// substring match in subject/body, plus per-token (stemmed) matches in
// subject/message/author.
func relevance(c rawCommit, query string, terms []string) float64 {
	var score float64
	queryLower := strings.ToLower(query)
	subject := strings.ToLower(c.subject)
	message := strings.ToLower(c.body)
	author := strings.ToLower(c.author)

	if strings.Contains(subject, queryLower) {
		score += 10
	}
	if strings.Contains(message, queryLower) {
		score += 5
	}

	for _, term := range terms {
		termLower := strings.ToLower(term)
		if len(termLower) < 2 {
			continue
		}
		stem := porter2.Stem(termLower)
		if strings.Contains(subject, termLower) || strings.Contains(subject, stem) {
			score += 3
		}
		if strings.Contains(message, termLower) || strings.Contains(message, stem) {
			score += 2
		}
		if strings.Contains(author, termLower) {
			score += 1
		}
	}
	return score
}

func tokenize(s string) []string {
	return wordPattern.FindAllString(s, -1)
}

func isSpace(r rune) bool { return unicode.IsSpace(r) }

var _ = isSpace

func (r *Retrieval) commitStats(repoPath, hash string) ([]string, int, int) {
	out, err := r.run(repoPath, "show", "--stat", "--name-only", "--format=", hash)
	if err != nil {
		return nil, 0, 0
	}
	var files []string
	var insertions, deletions int
	insRe := regexp.MustCompile(`(\d+) insertion`)
	delRe := regexp.MustCompile(`(\d+) deletion`)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "insertion") || strings.Contains(line, "deletion") {
			if m := insRe.FindStringSubmatch(line); m != nil {
				insertions, _ = strconv.Atoi(m[1])
			}
			if m := delRe.FindStringSubmatch(line); m != nil {
				deletions, _ = strconv.Atoi(m[1])
			}
			continue
		}
		if !strings.Contains(line, "|") {
			files = append(files, line)
		}
	}
	return files, insertions, deletions
}

func (r *Retrieval) commitDiff(repoPath, hash string, contextLines, maxLen int) string {
	if contextLines <= 0 {
		contextLines = 3
	}
	out, err := r.run(repoPath, "show", fmt.Sprintf("-U%d", contextLines), "--format=", hash)
	if err != nil || out == "" {
		return ""
	}
	diff := strings.TrimSpace(out)
	if maxLen > 0 && len(diff) > maxLen {
		return diff[:maxLen] + "\n... (truncated)"
	}
	return diff
}

// Search performs relevance-ranked commit search per spec §4.10.
func (r *Retrieval) Search(query string, opts SearchOptions) (*SearchResult, error) {
	repoPath := r.resolve(opts.RepoPath)

	if !r.isRepo(repoPath) {
		return nil, cferrors.New(cferrors.NotAGitRepository, "not a git repository: %s", repoPath)
	}
	count := r.commitCount(repoPath)
	if count == 0 {
		return nil, cferrors.New(cferrors.NoCommits, "repository has no commits")
	}

	scanLimit := r.scanLimit
	if count < scanLimit {
		scanLimit = count
	}

	args := []string{"log", "--format=" + logFormat, fmt.Sprintf("-n%d", scanLimit)}
	if opts.DateAfter != "" {
		args = append(args, "--after="+opts.DateAfter)
	}
	if opts.DateBefore != "" {
		args = append(args, "--before="+opts.DateBefore)
	}
	if opts.Author != "" {
		args = append(args, "--author="+opts.Author)
	}
	if opts.Branch != "" {
		args = append(args, opts.Branch)
	} else if opts.Tag != "" {
		args = append(args, "refs/tags/"+opts.Tag)
	}
	if opts.PathFilter != "" {
		args = append(args, "--", opts.PathFilter)
	}

	out, err := r.run(repoPath, args...)
	if err != nil {
		return nil, err
	}

	raw := parseCommitLog(out)
	terms := tokenize(query)

	type scored struct {
		score float64
		c     rawCommit
	}
	var candidates []scored
	for _, c := range raw {
		s := relevance(c, query, terms)
		if s > 0 {
			candidates = append(candidates, scored{s, c})
		}
	}
	// stable sort by score desc
	for i := 1; i < len(candidates); i++ {
		j := i
		for j > 0 && candidates[j-1].score < candidates[j].score {
			candidates[j-1], candidates[j] = candidates[j], candidates[j-1]
			j--
		}
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	commits := make([]Commit, 0, len(candidates))
	for _, cand := range candidates {
		files, ins, del := r.commitStats(repoPath, cand.c.hash)
		var diffPreview string
		if opts.IncludeDiffs {
			diffPreview = r.commitDiff(repoPath, cand.c.hash, opts.DiffContext, opts.MaxDiffLength)
		}
		commits = append(commits, Commit{
			Hash:           cand.c.hash,
			ShortHash:      cand.c.short,
			Author:         cand.c.author,
			AuthorEmail:    cand.c.email,
			Date:           cand.c.date,
			Subject:        cand.c.subject,
			Message:        cand.c.body,
			FilesChanged:   files,
			Insertions:     ins,
			Deletions:      del,
			DiffPreview:    diffPreview,
			RelevanceScore: cand.score,
		})
	}

	return &SearchResult{Commits: commits, TotalCommitsSearched: len(raw)}, nil
}

// GetCommit fetches one commit's full structured info.
func (r *Retrieval) GetCommit(repoPath, hash string) (*Commit, error) {
	path := r.resolve(repoPath)
	if !r.isRepo(path) {
		return nil, cferrors.New(cferrors.NotAGitRepository, "not a git repository: %s", path)
	}
	out, err := r.run(path, "show", "--format="+logFormat, "-s", hash)
	if err != nil {
		return nil, err
	}
	raw := parseCommitLog(out)
	if len(raw) == 0 {
		return nil, cferrors.New(cferrors.NotFound, "commit %q not found", hash)
	}
	c := raw[0]
	files, ins, del := r.commitStats(path, c.hash)
	diff := r.commitDiff(path, c.hash, 3, 1000)
	return &Commit{
		Hash: c.hash, ShortHash: c.short, Author: c.author, AuthorEmail: c.email,
		Date: c.date, Subject: c.subject, Message: c.body,
		FilesChanged: files, Insertions: ins, Deletions: del, DiffPreview: diff,
		RelevanceScore: 1,
	}, nil
}

// Blame parses `git blame --line-porcelain` into per-line attribution.
func (r *Retrieval) Blame(repoPath, file string, startLine, endLine int) ([]BlameLine, error) {
	path := r.resolve(repoPath)
	if !r.isRepo(path) {
		return nil, cferrors.New(cferrors.NotAGitRepository, "not a git repository: %s", path)
	}

	args := []string{"blame", "--line-porcelain"}
	switch {
	case startLine > 0 && endLine > 0:
		args = append(args, fmt.Sprintf("-L%d,%d", startLine, endLine))
	case startLine > 0:
		args = append(args, fmt.Sprintf("-L%d,", startLine))
	}
	args = append(args, file)

	out, err := r.run(path, args...)
	if err != nil {
		return nil, err
	}

	var lines []BlameLine
	current := map[string]string{}
	lineNo := startLine
	if lineNo <= 0 {
		lineNo = 1
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "\t") {
			lines = append(lines, BlameLine{
				LineNumber:  lineNo,
				CommitHash:  current["hash"],
				Author:      current["author"],
				AuthorEmail: strings.Trim(current["author-mail"], "<>"),
				Date:        current["author-time"],
				Content:     line[1:],
			})
			lineNo++
			current = map[string]string{}
			continue
		}
		key, value, found := strings.Cut(line, " ")
		if !found {
			continue
		}
		if len(key) == 40 {
			current["hash"] = key
		} else {
			current[key] = value
		}
	}

	return lines, nil
}

// Diff returns the raw diff between two refs plus a per-file change list
// and aggregate +/- counts.
func (r *Retrieval) Diff(repoPath, fromRef, toRef, file string, contextLines int) (*DiffResult, error) {
	path := r.resolve(repoPath)
	if !r.isRepo(path) {
		return nil, cferrors.New(cferrors.NotAGitRepository, "not a git repository: %s", path)
	}
	if toRef == "" {
		toRef = "HEAD"
	}
	if contextLines <= 0 {
		contextLines = 3
	}

	args := []string{"diff", fmt.Sprintf("-U%d", contextLines), fromRef, toRef}
	if file != "" {
		args = append(args, "--", file)
	}
	raw, err := r.run(path, args...)
	if err != nil {
		return nil, err
	}

	filesSeen := map[string]*FileChange{}
	var order []string
	var insertions, deletions int
	var currentFile string

	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git"):
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				currentFile = strings.TrimPrefix(parts[3], "b/")
				if _, ok := filesSeen[currentFile]; !ok {
					filesSeen[currentFile] = &FileChange{Path: currentFile}
					order = append(order, currentFile)
				}
			}
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			// file header, not a content line
		case strings.HasPrefix(line, "+"):
			insertions++
			if fc, ok := filesSeen[currentFile]; ok {
				fc.Insertions++
			}
		case strings.HasPrefix(line, "-"):
			deletions++
			if fc, ok := filesSeen[currentFile]; ok {
				fc.Deletions++
			}
		}
	}

	files := make([]FileChange, 0, len(order))
	for _, f := range order {
		files = append(files, *filesSeen[f])
	}

	return &DiffResult{
		FromRef: fromRef, ToRef: toRef, Raw: raw,
		Files: files, Insertions: insertions, Deletions: deletions,
	}, nil
}
