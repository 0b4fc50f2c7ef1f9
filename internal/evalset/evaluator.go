package evalset

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pawsense/vetagent/pkg/types"
)

// Searcher is the retrieval surface under evaluation: one query in, ranked
// evidence out.
type Searcher interface {
	Search(ctx context.Context, query string, species types.Species) ([]types.SearchEvidence, error)
}

// TierReport aggregates metrics for one difficulty tier.
type TierReport struct {
	Queries int     `json:"queries"`
	Hits    int     `json:"hits"`
	HitRate float64 `json:"hit_rate"`
	MRR     float64 `json:"mrr"`
}

// Report is the full evaluation result.
type Report struct {
	Overall TierReport            `json:"overall"`
	ByTier  map[string]TierReport `json:"by_tier"`
}

// Evaluator scores a Searcher against generated queries.
type Evaluator struct {
	searcher Searcher
	topK     int
}

// NewEvaluator creates an evaluator judging hits within the first topK
// results (default: 5).
func NewEvaluator(searcher Searcher, topK int) *Evaluator {
	if topK <= 0 {
		topK = 5
	}
	return &Evaluator{searcher: searcher, topK: topK}
}

// rankOf returns the 1-based rank of recordID within evidence, or 0.
func rankOf(recordID int, evidence []types.SearchEvidence, topK int) int {
	want := strconv.Itoa(recordID)
	for i, e := range evidence {
		if i >= topK {
			break
		}
		if e.ID == want {
			return i + 1
		}
	}
	return 0
}

// Evaluate runs every query and aggregates hit rate at topK and MRR, both
// overall and per difficulty tier. Search errors count as misses.
func (ev *Evaluator) Evaluate(ctx context.Context, queries []EvalQuery) (Report, error) {
	report := Report{ByTier: make(map[string]TierReport)}
	if len(queries) == 0 {
		return report, fmt.Errorf("evalset: no queries to evaluate")
	}

	reciprocalSums := make(map[string]float64)
	var overallReciprocal float64

	for _, q := range queries {
		evidence, err := ev.searcher.Search(ctx, q.Query, types.NormalizeSpecies(q.Species))
		rank := 0
		if err == nil {
			rank = rankOf(q.RecordID, evidence, ev.topK)
		}

		tier := report.ByTier[q.Difficulty]
		tier.Queries++
		report.Overall.Queries++
		if rank > 0 {
			tier.Hits++
			report.Overall.Hits++
			reciprocalSums[q.Difficulty] += 1 / float64(rank)
			overallReciprocal += 1 / float64(rank)
		}
		report.ByTier[q.Difficulty] = tier
	}

	finalize := func(tier TierReport, reciprocal float64) TierReport {
		tier.HitRate = float64(tier.Hits) / float64(tier.Queries)
		tier.MRR = reciprocal / float64(tier.Queries)
		return tier
	}
	for name, tier := range report.ByTier {
		report.ByTier[name] = finalize(tier, reciprocalSums[name])
	}
	report.Overall = finalize(report.Overall, overallReciprocal)
	return report, nil
}

// Format renders the report as an aligned text table.
func (r Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-8s %8s %8s %8s %8s\n", "tier", "queries", "hits", "hit@k", "mrr")

	tiers := make([]string, 0, len(r.ByTier))
	for name := range r.ByTier {
		tiers = append(tiers, name)
	}
	sort.Strings(tiers)
	for _, name := range tiers {
		tier := r.ByTier[name]
		fmt.Fprintf(&b, "%-8s %8d %8d %8.3f %8.3f\n", name, tier.Queries, tier.Hits, tier.HitRate, tier.MRR)
	}
	fmt.Fprintf(&b, "%-8s %8d %8d %8.3f %8.3f\n", "overall", r.Overall.Queries, r.Overall.Hits, r.Overall.HitRate, r.Overall.MRR)
	return b.String()
}
