// Package retrieval implements the hybrid retrieval and fusion engine:
// multi-query dense+sparse search against the vector store, Reciprocal Rank
// Fusion, deduplication, optional re-ranking, and evidence formatting.
//
// The engine never propagates failures: every degraded path collapses to a
// smaller (possibly empty) evidence set so the dialogue layer can route to
// its "insufficient evidence" handling.
package retrieval

import (
	"context"
	"log"
	"slices"
	"sync"

	"github.com/pawsense/vetagent/internal/llm"
	"github.com/pawsense/vetagent/internal/vectorstore"
	"github.com/pawsense/vetagent/pkg/types"
)

// Config tunes the fusion engine. The zero value is not usable; call
// DefaultConfig.
type Config struct {
	// RecallLimit is how many hits each single search path returns.
	RecallLimit int

	// PerQueryLimit caps the evidence kept per planner query after fusion
	// and re-ranking.
	PerQueryLimit int

	// TopK is the final evidence budget across all planner queries.
	TopK int

	// RRFK is the k constant in the reciprocal-rank denominator.
	RRFK int

	// DenseWeight and SparseWeight scale each list's RRF contribution.
	DenseWeight  float64
	SparseWeight float64

	// UseReranker enables the re-ranking pass over fused candidates.
	UseReranker bool
}

// DefaultConfig mirrors the production tuning: recall width 40, RRF k=40,
// equal list weights, 10 candidates per query, 5 final.
func DefaultConfig() Config {
	return Config{
		RecallLimit:   40,
		PerQueryLimit: 10,
		TopK:          5,
		RRFK:          40,
		DenseWeight:   1.0,
		SparseWeight:  1.0,
		UseReranker:   true,
	}
}

// HybridRetriever issues hybrid searches and fuses their results.
// All collaborators are injected and treated as stateless and thread-safe.
type HybridRetriever struct {
	store    vectorstore.Store
	embedder llm.EmbeddingGenerator
	encoder  *SparseEncoder
	reranker llm.Reranker
	config   Config
}

// NewHybridRetriever wires the engine. reranker may be nil, which disables
// re-ranking regardless of config.
func NewHybridRetriever(store vectorstore.Store, embedder llm.EmbeddingGenerator, reranker llm.Reranker, config Config) *HybridRetriever {
	if config.RecallLimit <= 0 {
		config = DefaultConfig()
	}
	return &HybridRetriever{
		store:    store,
		embedder: embedder,
		encoder:  NewSparseEncoder(),
		reranker: reranker,
		config:   config,
	}
}

// speciesFilter builds the exact-match filter applied to both search paths
// when the species is known.
func speciesFilter(species types.Species) map[string]string {
	if !species.Known() {
		return nil
	}
	return map[string]string{"species": string(species)}
}

// Search runs one hybrid search for a single query: dense and sparse paths
// concurrently, RRF fusion, optional re-rank, formatted evidence. A failed
// path contributes an empty list; both paths failing yields no evidence.
func (r *HybridRetriever) Search(ctx context.Context, query string, species types.Species) ([]types.SearchEvidence, error) {
	filter := speciesFilter(species)

	var (
		wg         sync.WaitGroup
		denseHits  []vectorstore.Hit
		sparseHits []vectorstore.Hit
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		vec, err := r.embedder.Embed(ctx, query)
		if err != nil {
			log.Printf("retrieval: dense embed failed for %q: %v", query, err)
			return
		}
		hits, err := r.store.Query(ctx, vectorstore.QueryRequest{
			Space:  vectorstore.SpaceDense,
			Dense:  vec,
			Limit:  r.config.RecallLimit,
			Filter: filter,
		})
		if err != nil {
			log.Printf("retrieval: dense search failed for %q: %v", query, err)
			return
		}
		denseHits = hits
	}()
	go func() {
		defer wg.Done()
		sparse := r.encoder.Encode(query)
		hits, err := r.store.Query(ctx, vectorstore.QueryRequest{
			Space:  vectorstore.SpaceSparse,
			Sparse: &sparse,
			Text:   query,
			Limit:  r.config.RecallLimit,
			Filter: filter,
		})
		if err != nil {
			log.Printf("retrieval: sparse search failed for %q: %v", query, err)
			return
		}
		sparseHits = hits
	}()
	wg.Wait()

	if len(denseHits) == 0 && len(sparseHits) == 0 {
		return nil, nil
	}

	fused := fuse([]rankedList{
		{source: "dense", hits: denseHits, weight: r.config.DenseWeight},
		{source: "sparse", hits: sparseHits, weight: r.config.SparseWeight},
	}, r.config.RRFK)

	if r.config.UseReranker && r.reranker != nil {
		if reranked, ok := r.rerank(ctx, query, fused); ok {
			return reranked, nil
		}
		// Re-ranking is a precision pass; when it fails the fused order
		// is still a valid ranking.
	}

	limit := min(len(fused), r.config.PerQueryLimit)
	evidence := make([]types.SearchEvidence, 0, limit)
	for _, item := range fused[:limit] {
		evidence = append(evidence, types.SearchEvidence{
			ID:         item.hit.ID,
			Score:      item.score,
			Text:       payloadText(item.hit.Payload),
			Metadata:   item.hit.Payload,
			Provenance: item.provenance(),
		})
	}
	return evidence, nil
}

// rerank sends the fused candidates through the re-ranker and returns the
// re-scored evidence. The false return means the pass failed and the caller
// should fall back to fused order.
func (r *HybridRetriever) rerank(ctx context.Context, query string, fused []fusedHit) ([]types.SearchEvidence, bool) {
	byID := make(map[string]fusedHit, len(fused))
	candidates := make([]llm.RerankCandidate, 0, len(fused))
	for _, item := range fused {
		byID[item.hit.ID] = item
		candidates = append(candidates, llm.RerankCandidate{
			ID:   item.hit.ID,
			Text: payloadText(item.hit.Payload),
		})
	}

	results, err := r.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		log.Printf("retrieval: rerank failed for %q, keeping fused order: %v", query, err)
		return nil, false
	}

	limit := min(len(results), r.config.PerQueryLimit)
	evidence := make([]types.SearchEvidence, 0, limit)
	for _, res := range results[:limit] {
		item, ok := byID[res.ID]
		if !ok {
			continue
		}
		evidence = append(evidence, types.SearchEvidence{
			ID:         res.ID,
			Score:      res.Score,
			Text:       payloadText(item.hit.Payload),
			Metadata:   item.hit.Payload,
			Provenance: "reranked",
		})
	}
	return evidence, true
}

// Retrieve runs the full multi-query pipeline: one hybrid search per planner
// query (concurrently), then a deterministic cross-query merge by evidence
// ID where the first occurrence keeps its payload and the higher score is
// retained, sorted by score descending and truncated to TopK.
//
// It never fails: missing queries and retrieval-layer errors both degrade to
// an empty evidence set.
func (r *HybridRetriever) Retrieve(ctx context.Context, queries []string, species types.Species) []types.SearchEvidence {
	if len(queries) == 0 {
		log.Printf("retrieval: no queries supplied, skipping retrieval")
		return nil
	}

	perQuery := make([][]types.SearchEvidence, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			evidence, err := r.Search(ctx, q, species)
			if err != nil {
				log.Printf("retrieval: query %q failed: %v", q, err)
				return
			}
			perQuery[i] = evidence
		}(i, q)
	}
	wg.Wait()

	// Merge in query order so "first occurrence" is deterministic even
	// though the searches ran concurrently.
	merged := make(map[string]types.SearchEvidence)
	var order []string
	for _, evidence := range perQuery {
		for _, e := range evidence {
			existing, seen := merged[e.ID]
			if !seen {
				merged[e.ID] = e
				order = append(order, e.ID)
				continue
			}
			if e.Score > existing.Score {
				existing.Score = e.Score
				merged[e.ID] = existing
			}
		}
	}

	out := make([]types.SearchEvidence, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}
	slices.SortStableFunc(out, func(a, b types.SearchEvidence) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(out) > r.config.TopK {
		out = out[:r.config.TopK]
	}
	log.Printf("retrieval: %d queries produced %d unique evidence items", len(queries), len(out))
	return out
}

// payloadText extracts the record's observation text from a hit payload.
func payloadText(payload map[string]any) string {
	if v, ok := payload["text"].(string); ok {
		return v
	}
	return ""
}
