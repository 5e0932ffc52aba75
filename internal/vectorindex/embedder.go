package vectorindex

import (
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/surgebase/porter2"
)

// HashingEmbedder is a dependency-free Embedder so the module runs
// standalone without an external embedding service: each text is
// tokenized, stemmed, and folded into a fixed-dimension vector via the
// hashing trick. Deterministic for identical input, satisfying the
// Embedding port's repeatability requirement (spec §6).
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder constructs a HashingEmbedder producing vectors of
// the given dimension.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashingEmbedder{dim: dim}
}

// Encode implements Embedder.
func (h *HashingEmbedder) Encode(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.encodeOne(t)
	}
	return out, nil
}

func (h *HashingEmbedder) encodeOne(text string) []float32 {
	vec := make([]float32, h.dim)
	for _, token := range tokenize(text) {
		stemmed := porter2.Stem(token)
		if stemmed == "" {
			continue
		}
		bucket := xxhash.Sum64String(stemmed) % uint64(h.dim)
		vec[bucket]++
	}
	normalize(vec)
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sumSq))
	for i := range vec {
		vec[i] *= norm
	}
}
