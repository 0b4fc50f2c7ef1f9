package indexer

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/pawsense/vetagent/internal/retrieval"
	"github.com/pawsense/vetagent/internal/vectorstore"
	"github.com/pawsense/vetagent/pkg/types"
)

// BatchEmbedder embeds many texts in one provider call.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	GetModel() string
}

// Config tunes the indexing pipeline.
type Config struct {
	// Workers is the number of concurrent batch workers (default: 4).
	Workers int

	// BatchSize is how many records share one embedding call (default: 32).
	BatchSize int

	// MaxRetries is how many times a failed batch is retried (default: 3).
	MaxRetries int

	// EmbedRPS caps embedding calls per second across all workers
	// (default: 5).
	EmbedRPS float64

	// EmbeddingDim is the dense vector dimension used when creating the
	// collection.
	EmbeddingDim int
}

// DefaultConfig returns the production indexing settings.
func DefaultConfig() Config {
	return Config{
		Workers:      4,
		BatchSize:    32,
		MaxRetries:   3,
		EmbedRPS:     5,
		EmbeddingDim: 1536,
	}
}

// Stats summarizes one indexing run.
type Stats struct {
	Indexed int64
	Failed  int64
}

// Indexer writes the corpus into the vector store.
type Indexer struct {
	store    vectorstore.Store
	embedder BatchEmbedder
	encoder  *retrieval.SparseEncoder
	limiter  *rate.Limiter
	config   Config
}

// New creates an indexer. Zero config fields take their defaults.
func New(store vectorstore.Store, embedder BatchEmbedder, config Config) *Indexer {
	defaults := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.EmbedRPS <= 0 {
		config.EmbedRPS = defaults.EmbedRPS
	}
	if config.EmbeddingDim <= 0 {
		config.EmbeddingDim = defaults.EmbeddingDim
	}
	return &Indexer{
		store:    store,
		embedder: embedder,
		encoder:  retrieval.NewSparseEncoder(),
		limiter:  rate.NewLimiter(rate.Limit(config.EmbedRPS), 1),
		config:   config,
	}
}

// Run ensures the collection exists and indexes every record. Batches that
// keep failing after retries are counted and skipped; the run itself only
// fails when the collection cannot be prepared or the context is cancelled.
func (ix *Indexer) Run(ctx context.Context, records []types.PetRecord) (Stats, error) {
	var stats Stats
	if len(records) == 0 {
		return stats, nil
	}

	if err := ix.store.EnsureCollection(ctx, ix.config.EmbeddingDim); err != nil {
		return stats, fmt.Errorf("indexer: prepare collection: %w", err)
	}

	batches := make(chan []types.PetRecord)
	var (
		wg      sync.WaitGroup
		indexed atomic.Int64
		failed  atomic.Int64
	)

	for w := 0; w < ix.config.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for batch := range batches {
				if err := ix.indexBatch(ctx, workerID, batch); err != nil {
					log.Printf("indexer: worker %d giving up on batch of %d: %v", workerID, len(batch), err)
					failed.Add(int64(len(batch)))
					continue
				}
				indexed.Add(int64(len(batch)))
			}
		}(w)
	}

	start := time.Now()
feed:
	for begin := 0; begin < len(records); begin += ix.config.BatchSize {
		end := min(begin+ix.config.BatchSize, len(records))
		select {
		case batches <- records[begin:end]:
		case <-ctx.Done():
			break feed
		}
	}
	close(batches)
	wg.Wait()

	stats.Indexed = indexed.Load()
	stats.Failed = failed.Load()
	log.Printf("indexer: indexed %d records (%d failed) in %s", stats.Indexed, stats.Failed, time.Since(start).Round(time.Millisecond))
	return stats, ctx.Err()
}

// indexBatch embeds and upserts one batch, retrying with quadratic backoff.
func (ix *Indexer) indexBatch(ctx context.Context, workerID int, batch []types.PetRecord) error {
	var lastErr error
	for attempt := 0; attempt <= ix.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 100 * time.Millisecond
			log.Printf("indexer: worker %d retrying batch in %v (attempt %d/%d)", workerID, backoff, attempt, ix.config.MaxRetries)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := ix.tryBatch(ctx, batch); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// tryBatch is one embed-and-upsert attempt.
func (ix *Indexer) tryBatch(ctx context.Context, batch []types.PetRecord) error {
	if err := ix.limiter.Wait(ctx); err != nil {
		return err
	}

	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.DenseContent()
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embed batch: got %d vectors for %d records", len(vectors), len(batch))
	}

	points := make([]vectorstore.Point, len(batch))
	for i, r := range batch {
		points[i] = vectorstore.Point{
			ID:         strconv.Itoa(r.ID),
			Dense:      vectors[i],
			Sparse:     ix.encoder.Encode(r.SparseContent()),
			SparseText: r.SparseContent(),
			Payload:    r.Payload(),
		}
	}
	if err := ix.store.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}
