package retrieval

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pawsense/vetagent/internal/vectorstore"
)

// stopwords excluded from sparse vectors. Keeping this list short is
// deliberate: domain words ("not", "no") can carry clinical meaning, so only
// pure glue words are dropped.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "has": true,
	"have": true, "he": true, "her": true, "his": true, "in": true,
	"is": true, "it": true, "its": true, "my": true, "of": true,
	"on": true, "or": true, "she": true, "that": true, "the": true,
	"their": true, "they": true, "this": true, "to": true, "was": true,
	"were": true, "with": true,
}

// SparseEncoder turns text into a BM25-style hashed term vector: each
// distinct token maps to an FNV-1a index, weighted by log-scaled term
// frequency. Both the indexer and the query side must use the same encoder
// or sparse matching silently degrades to noise.
type SparseEncoder struct{}

// NewSparseEncoder creates the encoder.
func NewSparseEncoder() *SparseEncoder {
	return &SparseEncoder{}
}

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Encode produces the sparse vector for text. Indices are ascending and
// unique; the zero vector is returned for text with no indexable tokens.
func (e *SparseEncoder) Encode(text string) vectorstore.SparseVector {
	counts := make(map[uint32]float32)
	for _, token := range tokenize(text) {
		if len(token) < 2 || stopwords[token] {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		counts[h.Sum32()]++
	}

	indices := make([]uint32, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		values[i] = 1 + float32(math.Log(float64(counts[idx])))
	}
	return vectorstore.SparseVector{Indices: indices, Values: values}
}
