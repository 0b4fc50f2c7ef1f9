package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawsense/vetagent/internal/vectorstore"
	"github.com/pawsense/vetagent/pkg/types"
)

type recordingStore struct {
	mu         sync.Mutex
	points     []vectorstore.Point
	upsertFail int // first n upserts fail
	ensured    bool
}

func (s *recordingStore) EnsureCollection(ctx context.Context, dim int) error {
	s.ensured = true
	return nil
}

func (s *recordingStore) Upsert(ctx context.Context, points []vectorstore.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertFail > 0 {
		s.upsertFail--
		return errors.New("store unavailable")
	}
	s.points = append(s.points, points...)
	return nil
}

func (s *recordingStore) Query(ctx context.Context, req vectorstore.QueryRequest) ([]vectorstore.Hit, error) {
	return nil, nil
}
func (s *recordingStore) Close() error { return nil }

func (s *recordingStore) stored() []vectorstore.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]vectorstore.Point(nil), s.points...)
}

type batchEmbedderStub struct {
	mu    sync.Mutex
	fail  int // first n calls fail
	calls int
}

func (e *batchEmbedderStub) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.fail > 0 {
		e.fail--
		return nil, errors.New("rate limited")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}
func (e *batchEmbedderStub) GetModel() string { return "stub-embed" }

func corpus(n int) []types.PetRecord {
	records := make([]types.PetRecord, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, types.PetRecord{
			ID:              i,
			Text:            "vomiting and lethargy for two days",
			Condition:       "Gastroenteritis",
			Species:         types.SpeciesDog,
			SpecificBreed:   "labrador",
			SymptomKeywords: []string{"vomiting", "lethargy"},
		}.Clean())
	}
	return records
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.BatchSize = 4
	cfg.EmbedRPS = 10000
	return cfg
}

func TestRunIndexesEverything(t *testing.T) {
	store := &recordingStore{}
	ix := New(store, &batchEmbedderStub{}, fastConfig())

	stats, err := ix.Run(context.Background(), corpus(10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Indexed)
	assert.Zero(t, stats.Failed)
	assert.True(t, store.ensured)

	points := store.stored()
	require.Len(t, points, 10)
	sample := points[0]
	assert.NotEmpty(t, sample.Dense)
	assert.NotEmpty(t, sample.Sparse.Indices)
	assert.NotEmpty(t, sample.SparseText)
	assert.Equal(t, "dog", sample.Payload["species"])
	assert.Equal(t, "Gastroenteritis", sample.Payload["condition"])
}

func TestRunRetriesTransientFailures(t *testing.T) {
	store := &recordingStore{}
	embedder := &batchEmbedderStub{fail: 1}
	ix := New(store, embedder, fastConfig())

	stats, err := ix.Run(context.Background(), corpus(4))
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Indexed)
	assert.Zero(t, stats.Failed)
	assert.GreaterOrEqual(t, embedder.calls, 2)
}

func TestRunCountsPermanentFailures(t *testing.T) {
	store := &recordingStore{upsertFail: 100}
	cfg := fastConfig()
	cfg.Workers = 1
	cfg.MaxRetries = 2
	ix := New(store, &batchEmbedderStub{}, cfg)

	stats, err := ix.Run(context.Background(), corpus(4))
	require.NoError(t, err)
	assert.Zero(t, stats.Indexed)
	assert.Equal(t, int64(4), stats.Failed)
}

func TestRunEmptyCorpus(t *testing.T) {
	ix := New(&recordingStore{}, &batchEmbedderStub{}, fastConfig())
	stats, err := ix.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Indexed)
}

func TestLoadCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	content := `[
		{"id": 1, "text": "my dog keeps vomiting", "condition": "Gastroenteritis", "species": "Dog", "specific_breed": "Unknown", "symptom_keywords": ["Vomiting", "vomiting"]},
		{"id": 2, "text": "", "condition": "X", "species": "cat"},
		{"id": 3, "text": "bunny not eating", "species": "bunny", "specific_breed": "lop"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := LoadCorpus(path)
	require.NoError(t, err)
	require.Len(t, records, 2, "the empty-text record is dropped")

	first := records[0]
	assert.Equal(t, types.SpeciesDog, first.Species)
	assert.Equal(t, "dog", first.SpecificBreed, "placeholder breed falls back to species")
	assert.Equal(t, []string{"vomiting"}, first.SymptomKeywords)

	second := records[1]
	assert.Equal(t, types.SpeciesRabbit, second.Species)
	assert.Equal(t, "Unknown", second.Condition)
}

func TestLoadCorpusMissingFile(t *testing.T) {
	_, err := LoadCorpus(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadCorpusMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := LoadCorpus(path)
	assert.Error(t, err)
}
