package evalset

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawsense/vetagent/pkg/types"
)

type stubGenerator struct {
	mu        sync.Mutex
	response  string
	err       error
	failForID string // when the prompt contains this text, fail
	calls     int
}

func (g *stubGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}
func (g *stubGenerator) GetModel() string { return "stub" }

func evalRecords(n int) []types.PetRecord {
	records := make([]types.PetRecord, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, types.PetRecord{
			ID:              i,
			Text:            "vomiting and not eating",
			Species:         types.SpeciesDog,
			SymptomKeywords: []string{"vomiting"},
		}.Clean())
	}
	return records
}

func TestGenerateThreeTiersPerRecord(t *testing.T) {
	gen := &stubGenerator{response: `{
		"easy": "my dog is vomiting and not eating",
		"medium": "my dog keeps throwing up and refuses food",
		"hard": "something is off, he will not touch his bowl"
	}`}
	g := NewGenerator(gen, 2)

	queries := g.Generate(context.Background(), evalRecords(3))
	require.Len(t, queries, 9)

	// Output order follows input order, tiers in easy/medium/hard order.
	assert.Equal(t, 1, queries[0].RecordID)
	assert.Equal(t, DifficultyEasy, queries[0].Difficulty)
	assert.Equal(t, DifficultyHard, queries[2].Difficulty)
	assert.Equal(t, 3, queries[8].RecordID)
	assert.Equal(t, "dog", queries[0].Species)
}

func TestGenerateSkipsFailedRecords(t *testing.T) {
	g := NewGenerator(&stubGenerator{err: errors.New("model down")}, 2)
	queries := g.Generate(context.Background(), evalRecords(3))
	assert.Empty(t, queries)
}

func TestGenerateDropsBlankTiers(t *testing.T) {
	gen := &stubGenerator{response: `{"easy": "my dog is vomiting", "medium": "", "hard": "  "}`}
	g := NewGenerator(gen, 1)

	queries := g.Generate(context.Background(), evalRecords(1))
	require.Len(t, queries, 1)
	assert.Equal(t, DifficultyEasy, queries[0].Difficulty)
}

// rankedSearcher returns a fixed ranking per query string.
type rankedSearcher struct {
	rankings map[string][]string
	err      error
}

func (s *rankedSearcher) Search(ctx context.Context, query string, species types.Species) ([]types.SearchEvidence, error) {
	if s.err != nil {
		return nil, s.err
	}
	ids := s.rankings[query]
	evidence := make([]types.SearchEvidence, 0, len(ids))
	for _, id := range ids {
		evidence = append(evidence, types.SearchEvidence{ID: id})
	}
	return evidence, nil
}

func TestEvaluateComputesHitRateAndMRR(t *testing.T) {
	searcher := &rankedSearcher{rankings: map[string][]string{
		"q-top":  {"1", "9", "8"},
		"q-rank": {"9", "8", "2"},
		"q-miss": {"9", "8", "7"},
	}}
	ev := NewEvaluator(searcher, 5)

	queries := []EvalQuery{
		{RecordID: 1, Difficulty: DifficultyEasy, Query: "q-top", Species: "dog"},
		{RecordID: 2, Difficulty: DifficultyMedium, Query: "q-rank", Species: "dog"},
		{RecordID: 3, Difficulty: DifficultyHard, Query: "q-miss", Species: "dog"},
	}
	report, err := ev.Evaluate(context.Background(), queries)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Overall.Queries)
	assert.Equal(t, 2, report.Overall.Hits)
	assert.InDelta(t, 2.0/3.0, report.Overall.HitRate, 1e-9)
	// MRR: (1/1 + 1/3 + 0) / 3.
	assert.InDelta(t, (1.0+1.0/3.0)/3.0, report.Overall.MRR, 1e-9)

	assert.InDelta(t, 1.0, report.ByTier[DifficultyEasy].HitRate, 1e-9)
	assert.InDelta(t, 0.0, report.ByTier[DifficultyHard].HitRate, 1e-9)
}

func TestEvaluateHonorsTopK(t *testing.T) {
	searcher := &rankedSearcher{rankings: map[string][]string{
		"q": {"9", "8", "1"},
	}}
	ev := NewEvaluator(searcher, 2)

	report, err := ev.Evaluate(context.Background(), []EvalQuery{
		{RecordID: 1, Difficulty: DifficultyEasy, Query: "q", Species: "dog"},
	})
	require.NoError(t, err)
	assert.Zero(t, report.Overall.Hits, "rank 3 is outside top-2")
}

func TestEvaluateSearchErrorCountsAsMiss(t *testing.T) {
	ev := NewEvaluator(&rankedSearcher{err: errors.New("store down")}, 5)

	report, err := ev.Evaluate(context.Background(), []EvalQuery{
		{RecordID: 1, Difficulty: DifficultyEasy, Query: "q", Species: "dog"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Overall.Queries)
	assert.Zero(t, report.Overall.Hits)
}

func TestEvaluateNoQueries(t *testing.T) {
	ev := NewEvaluator(&rankedSearcher{}, 5)
	_, err := ev.Evaluate(context.Background(), nil)
	assert.Error(t, err)
}

func TestReportFormat(t *testing.T) {
	report := Report{
		Overall: TierReport{Queries: 2, Hits: 1, HitRate: 0.5, MRR: 0.5},
		ByTier: map[string]TierReport{
			DifficultyEasy: {Queries: 2, Hits: 1, HitRate: 0.5, MRR: 0.5},
		},
	}
	text := report.Format()
	assert.Contains(t, text, "easy")
	assert.Contains(t, text, "overall")
	assert.Contains(t, text, "0.500")
}
