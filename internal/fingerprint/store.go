// Package fingerprint implements C1: per-file content fingerprints with
// drift detection, plus a short-lived reference-id content cache used for
// truncated-output retrieval. Grounded on the teacher's
// internal/core/file_content_store.go, scoped down from that file's
// 7-index-type machinery to the spec's simpler contract; a single
// sync.Mutex guards both the fingerprint table and the reference cache.
package fingerprint

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	cferrors "github.com/standardbeagle/contextforge/internal/errors"
	"github.com/standardbeagle/contextforge/internal/types"
)

const referenceIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Store owns C1's fingerprint table and content-reference cache. All
// methods are safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	fingerprints map[string]types.Fingerprint
	refs         map[string]*types.ChunkReference
	// order tracks reference insertion order for LRU-by-created_at eviction.
	order []string

	ttl           time.Duration
	maxReferences int
	maxSearch     int
}

// New constructs a Store with the given reference TTL, maximum live
// reference count, and search-result cap (spec §5 resource limits).
func New(ttl time.Duration, maxReferences, maxSearchResults int) *Store {
	return &Store{
		fingerprints:  make(map[string]types.Fingerprint),
		refs:          make(map[string]*types.ChunkReference),
		ttl:           ttl,
		maxReferences: maxReferences,
		maxSearch:     maxSearchResults,
	}
}

// Capture reads path and computes its Fingerprint.
func (s *Store) Capture(path string) (types.Fingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Fingerprint{}, cferrors.Wrap(cferrors.NotFound, err, "cannot read %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return types.Fingerprint{}, cferrors.Wrap(cferrors.NotFound, err, "cannot stat %s", path)
	}
	sum := sha256.Sum256(data)
	return types.Fingerprint{
		Path:      path,
		SHA256:    hex.EncodeToString(sum[:]),
		MTime:     info.ModTime(),
		Size:      info.Size(),
		LineCount: countLines(data),
	}, nil
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte("\n"))
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// Register records fp as the tracked fingerprint for its path.
func (s *Store) Register(fp types.Fingerprint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprints[fp.Path] = fp
}

// CheckDrift compares the current on-disk content at path against the
// registered fingerprint.
func (s *Store) CheckDrift(path string) (types.DriftStatus, types.Fingerprint, types.Fingerprint, error) {
	s.mu.Lock()
	old, tracked := s.fingerprints[path]
	s.mu.Unlock()
	if !tracked {
		return types.NotTracked, types.Fingerprint{}, types.Fingerprint{}, nil
	}
	current, err := s.Capture(path)
	if err != nil {
		return types.NotTracked, old, types.Fingerprint{}, err
	}
	if current.SHA256 == old.SHA256 {
		return types.NoDrift, old, current, nil
	}
	return types.Drifted, old, current, nil
}

// StoreContent caches content under a freshly minted reference id.
func (s *Store) StoreContent(content, source string, metadata map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()
	if len(s.refs) >= s.maxReferences {
		s.evictOldestLocked()
	}

	id := s.newReferenceIDLocked()
	now := time.Now()
	ref := &types.ChunkReference{
		ID:          id,
		ReferenceID: id,
		Content:     content,
		Source:      source,
		TotalLines:  countLines([]byte(content)),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
		Metadata:    metadata,
	}
	s.refs[id] = ref
	s.order = append(s.order, id)
	return id, nil
}

func (s *Store) newReferenceIDLocked() string {
	for {
		b := make([]byte, 10)
		for i := range b {
			b[i] = referenceIDAlphabet[rand.Intn(len(referenceIDAlphabet))]
		}
		id := string(b)
		if _, exists := s.refs[id]; !exists {
			return id
		}
	}
}

// evictExpiredLocked drops references past their TTL. Caller holds s.mu.
func (s *Store) evictExpiredLocked() {
	now := time.Now()
	kept := s.order[:0]
	for _, id := range s.order {
		ref, ok := s.refs[id]
		if !ok {
			continue
		}
		if now.After(ref.ExpiresAt) {
			delete(s.refs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

// evictOldestLocked removes the oldest-created reference. Caller holds s.mu.
func (s *Store) evictOldestLocked() {
	for len(s.order) > 0 {
		id := s.order[0]
		s.order = s.order[1:]
		if _, ok := s.refs[id]; ok {
			delete(s.refs, id)
			return
		}
	}
}

func (s *Store) get(referenceID string) (*types.ChunkReference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	ref, ok := s.refs[referenceID]
	if !ok {
		return nil, cferrors.New(cferrors.NotFound, "reference %q not found or expired", referenceID)
	}
	return ref, nil
}

// ViewRange returns the 1-based inclusive line range [start, end] of the
// content stored under referenceID. end is silently clamped to the
// content's total line count.
func (s *Store) ViewRange(referenceID string, start, end int) (string, error) {
	ref, err := s.get(referenceID)
	if err != nil {
		return "", err
	}
	if start < 1 || start > ref.TotalLines || start > end {
		return "", cferrors.New(cferrors.ValidationError, "invalid range [%d,%d] for reference with %d lines", start, end, ref.TotalLines).
			WithDetail("start_line", start).WithDetail("end_line", end).WithDetail("total_lines", ref.TotalLines)
	}
	if end > ref.TotalLines {
		end = ref.TotalLines
	}
	lines := splitLines(ref.Content)
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}

func splitLines(content string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// SearchOptions configures Store.Search.
type SearchOptions struct {
	UseRegex      bool
	CaseSensitive bool
	ContextLines  int
}

// SearchMatch is a single match produced by Store.Search.
type SearchMatch struct {
	LineNumber int
	Line       string
	Context    []string
}

// Search finds pattern within the content stored under referenceID.
func (s *Store) Search(referenceID, pattern string, opts SearchOptions) ([]SearchMatch, bool, error) {
	ref, err := s.get(referenceID)
	if err != nil {
		return nil, false, err
	}
	matcher, err := newMatcher(pattern, opts.UseRegex, opts.CaseSensitive)
	if err != nil {
		return nil, false, cferrors.Wrap(cferrors.RegexError, err, "invalid pattern %q", pattern)
	}

	lines := splitLines(ref.Content)
	var results []SearchMatch
	capped := false
	for i, line := range lines {
		if !matcher(line) {
			continue
		}
		if len(results) >= s.maxSearch {
			capped = true
			break
		}
		lo := i - opts.ContextLines
		if lo < 0 {
			lo = 0
		}
		hi := i + opts.ContextLines
		if hi >= len(lines) {
			hi = len(lines) - 1
		}
		results = append(results, SearchMatch{
			LineNumber: i + 1,
			Line:       line,
			Context:    append([]string(nil), lines[lo:hi+1]...),
		})
	}
	return results, capped, nil
}

func newMatcher(pattern string, useRegex, caseSensitive bool) (func(string) bool, error) {
	if useRegex {
		return newRegexMatcher(pattern, caseSensitive)
	}
	needle := pattern
	if !caseSensitive {
		needle = strings.ToLower(needle)
	}
	return func(line string) bool {
		hay := line
		if !caseSensitive {
			hay = strings.ToLower(hay)
		}
		return strings.Contains(hay, needle)
	}, nil
}

// FastKey returns a non-cryptographic hash of content suitable for
// dedup/lookup keys where sha256's cost is unwarranted.
func FastKey(content string) uint64 {
	return xxhash.Sum64String(content)
}

// FingerprintEqual reports whether two fingerprints describe identical
// content (used by C4's full-vs-incremental decision).
func FingerprintEqual(a, b types.Fingerprint) bool {
	return a.SHA256 == b.SHA256
}
