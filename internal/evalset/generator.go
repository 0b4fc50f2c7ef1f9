// Package evalset generates retrieval evaluation queries from the corpus and
// scores the retriever against them with hit rate and mean reciprocal rank.
package evalset

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/pawsense/vetagent/internal/llm"
	"github.com/pawsense/vetagent/pkg/types"
)

// Difficulty tiers for generated queries.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// EvalQuery is one generated query with the record it should retrieve.
type EvalQuery struct {
	RecordID   int    `json:"record_id"`
	Species    string `json:"species"`
	Difficulty string `json:"difficulty"`
	Query      string `json:"query"`
}

// Generator produces evaluation queries with a bounded worker pool.
type Generator struct {
	generator llm.TextGenerator
	workers   int
}

// NewGenerator creates a generator running at most workers concurrent model
// calls (default: 4).
func NewGenerator(generator llm.TextGenerator, workers int) *Generator {
	if workers <= 0 {
		workers = 4
	}
	return &Generator{generator: generator, workers: workers}
}

type tieredQueries struct {
	Easy   string `json:"easy"`
	Medium string `json:"medium"`
	Hard   string `json:"hard"`
}

// Generate produces up to three queries per record. Records whose generation
// fails are logged and skipped; output order follows input order.
func (g *Generator) Generate(ctx context.Context, records []types.PetRecord) []EvalQuery {
	perRecord := make([][]EvalQuery, len(records))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < g.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				perRecord[i] = g.forRecord(ctx, records[i])
			}
		}()
	}
	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var out []EvalQuery
	for _, queries := range perRecord {
		out = append(out, queries...)
	}
	return out
}

// forRecord generates the three tiers for one record.
func (g *Generator) forRecord(ctx context.Context, record types.PetRecord) []EvalQuery {
	tiers, err := llm.Invoke[tieredQueries](ctx, g.generator, llm.TestQueriesPrompt(record))
	if err != nil {
		log.Printf("evalset: query generation failed for record %d: %v", record.ID, err)
		return nil
	}

	var out []EvalQuery
	add := func(difficulty, query string) {
		query = strings.TrimSpace(query)
		if query == "" {
			return
		}
		out = append(out, EvalQuery{
			RecordID:   record.ID,
			Species:    string(record.Species),
			Difficulty: difficulty,
			Query:      query,
		})
	}
	add(DifficultyEasy, tiers.Easy)
	add(DifficultyMedium, tiers.Medium)
	add(DifficultyHard, tiers.Hard)
	return out
}
