// vetagent-eval generates an evaluation query set from the corpus and scores
// the retrieval engine with hit rate and MRR.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/pawsense/vetagent/internal/app"
	"github.com/pawsense/vetagent/internal/config"
	"github.com/pawsense/vetagent/internal/evalset"
	"github.com/pawsense/vetagent/internal/indexer"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	corpusPath := flag.String("corpus", "data/pet_records.json", "path to the corpus JSON file")
	queriesPath := flag.String("queries", "", "path to a previously generated query set (skips generation)")
	savePath := flag.String("save", "", "write the generated query set to this path")
	workers := flag.Int("workers", 4, "concurrent query-generation workers")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client := app.NewLLMClient(cfg)

	var queries []evalset.EvalQuery
	if *queriesPath != "" {
		data, err := os.ReadFile(*queriesPath)
		if err != nil {
			log.Fatalf("Failed to read query set: %v", err)
		}
		if err := json.Unmarshal(data, &queries); err != nil {
			log.Fatalf("Failed to parse query set: %v", err)
		}
	} else {
		records, err := indexer.LoadCorpus(*corpusPath)
		if err != nil {
			log.Fatalf("Failed to load corpus: %v", err)
		}
		queries = evalset.NewGenerator(client, *workers).Generate(context.Background(), records)
		log.Printf("Generated %d evaluation queries from %d records", len(queries), len(records))
	}

	if *savePath != "" {
		data, err := json.MarshalIndent(queries, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode query set: %v", err)
		}
		if err := os.WriteFile(*savePath, data, 0o644); err != nil {
			log.Fatalf("Failed to write query set: %v", err)
		}
		log.Printf("Wrote query set to %s", *savePath)
	}

	store, err := app.NewVectorStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}
	defer store.Close()

	retriever := app.NewRetriever(cfg, store, client, app.NewReranker(cfg))
	report, err := evalset.NewEvaluator(retriever, cfg.Retrieval.TopK).Evaluate(context.Background(), queries)
	if err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}
	fmt.Print(report.Format())
}
