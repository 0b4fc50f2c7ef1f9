package retrieval

import (
	"slices"
	"strings"

	"github.com/pawsense/vetagent/internal/vectorstore"
)

// fusedHit is one item after Reciprocal Rank Fusion: the payload of its
// first appearance, its cumulative RRF score, and every source list that
// produced it.
type fusedHit struct {
	hit     vectorstore.Hit
	score   float64
	sources []string
}

// provenance joins the source lists in the "dense+sparse" form carried on
// SearchEvidence.
func (f fusedHit) provenance() string {
	return strings.Join(f.sources, "+")
}

// rankedList pairs a source label with its ranked hits for fusion.
type rankedList struct {
	source string
	hits   []vectorstore.Hit
	weight float64
}

// fuse combines ranked lists with Reciprocal Rank Fusion: an item at 0-based
// rank r in a list contributes weight/(k+r+1) to its cumulative score; items
// absent from a list contribute nothing from that list. The result is sorted
// by cumulative score descending, ties broken by first-appearance order for
// determinism.
func fuse(lists []rankedList, k int) []fusedHit {
	fused := make(map[string]*fusedHit)
	var order []string

	for _, list := range lists {
		for rank, hit := range list.hits {
			entry, ok := fused[hit.ID]
			if !ok {
				entry = &fusedHit{hit: hit}
				fused[hit.ID] = entry
				order = append(order, hit.ID)
			}
			entry.score += list.weight / float64(k+rank+1)
			entry.sources = append(entry.sources, list.source)
		}
	}

	out := make([]fusedHit, 0, len(order))
	for _, id := range order {
		out = append(out, *fused[id])
	}
	slices.SortStableFunc(out, func(a, b fusedHit) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})
	return out
}
