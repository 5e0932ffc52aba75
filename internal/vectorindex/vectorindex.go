// Package vectorindex defines C5's minimal KNN port and an in-memory
// brute-force implementation satisfying it. The spec treats the vector
// index as swappable infrastructure; no teacher equivalent exists (the
// teacher's own search index is trigram/symbol based, not vector/KNN), so
// this package is designed from the port contract in SPEC_FULL.md §4.5/§6
// directly.
package vectorindex

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/standardbeagle/contextforge/internal/types"
)

// InputChunk pairs a CodeChunk with the file path it came from, the unit
// Insert operates on.
type InputChunk struct {
	Path  string
	Chunk types.CodeChunk
}

// SearchResult is one ranked hit from Search.
type SearchResult struct {
	Text  string
	Score float32
	Meta  map[string]any
	Rank  int
}

// InsertStats reports Insert's outcome.
type InsertStats struct {
	ChunksProcessed int
	ChunksIndexed   int
}

// Stats describes the index's current backend state.
type Stats struct {
	TotalVectors int
	Dimension    int
	Backend      string
}

// Embedder produces embedding vectors for chunk text. The same input
// must always produce the same output (spec §6 Embedding port).
type Embedder interface {
	Encode(texts []string) ([][]float32, error)
}

// Index is the minimal contract the core depends on; any KNN
// implementation satisfying it may be substituted for InMemory.
type Index interface {
	Insert(chunks []InputChunk) (InsertStats, error)
	Search(query string, topK int) ([]SearchResult, error)
	DeleteByPath(path string) error
	Clear()
	Stats() Stats
}

type entry struct {
	id     string
	path   string
	vector []float32
	chunk  types.CodeChunk
}

// InMemory is a brute-force cosine-similarity Index.
type InMemory struct {
	mu       sync.Mutex
	embedder Embedder
	byID     map[string]*entry
	order    []string
}

// NewInMemory constructs an InMemory index using embedder to vectorize
// chunk text.
func NewInMemory(embedder Embedder) *InMemory {
	return &InMemory{embedder: embedder, byID: make(map[string]*entry)}
}

// Insert embeds each chunk's text and upserts it under a stable id
// derived from (path, start_line, end_line, content_hash).
func (idx *InMemory) Insert(chunks []InputChunk) (InsertStats, error) {
	if len(chunks) == 0 {
		return InsertStats{}, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Content
	}
	vectors, err := idx.embedder.Encode(texts)
	if err != nil {
		return InsertStats{}, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	indexed := 0
	for i, c := range chunks {
		id := chunkID(c)
		if _, exists := idx.byID[id]; !exists {
			idx.order = append(idx.order, id)
		}
		idx.byID[id] = &entry{id: id, path: c.Path, vector: vectors[i], chunk: c.Chunk}
		indexed++
	}
	return InsertStats{ChunksProcessed: len(chunks), ChunksIndexed: indexed}, nil
}

func chunkID(c InputChunk) string {
	sum := sha256.Sum256([]byte(c.Chunk.Content))
	return fmt.Sprintf("%s:%d:%d:%s", c.Path, c.Chunk.StartLine, c.Chunk.EndLine, hex.EncodeToString(sum[:8]))
}

// Search returns the topK nearest chunks to query by cosine similarity,
// ranked with monotonically non-increasing score.
func (idx *InMemory) Search(query string, topK int) ([]SearchResult, error) {
	qvecs, err := idx.embedder.Encode([]string{query})
	if err != nil {
		return nil, err
	}
	qvec := qvecs[0]

	idx.mu.Lock()
	candidates := make([]*entry, 0, len(idx.byID))
	for _, id := range idx.order {
		if e, ok := idx.byID[id]; ok {
			candidates = append(candidates, e)
		}
	}
	idx.mu.Unlock()

	scored := make([]SearchResult, 0, len(candidates))
	for _, e := range candidates {
		scored = append(scored, SearchResult{
			Text:  e.chunk.Content,
			Score: cosineSimilarity(qvec, e.vector),
			Meta: map[string]any{
				"file_path":  e.path,
				"start_line": e.chunk.StartLine,
				"end_line":   e.chunk.EndLine,
				"chunk_type": e.chunk.ChunkType.String(),
				"name":       e.chunk.Name,
			},
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topK > 0 && topK < len(scored) {
		scored = scored[:topK]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored, nil
}

// DeleteByPath removes every vector indexed under path.
func (idx *InMemory) DeleteByPath(path string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	kept := idx.order[:0]
	for _, id := range idx.order {
		e, ok := idx.byID[id]
		if !ok {
			continue
		}
		if e.path == path {
			delete(idx.byID, id)
			continue
		}
		kept = append(kept, id)
	}
	idx.order = kept
	return nil
}

// Clear removes all vectors.
func (idx *InMemory) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byID = make(map[string]*entry)
	idx.order = nil
}

// Stats reports the current vector count and embedding dimension.
func (idx *InMemory) Stats() Stats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	dim := 0
	if len(idx.order) > 0 {
		if e, ok := idx.byID[idx.order[0]]; ok {
			dim = len(e.vector)
		}
	}
	return Stats{TotalVectors: len(idx.order), Dimension: dim, Backend: "in-memory-bruteforce"}
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
