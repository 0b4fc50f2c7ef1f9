// vetagent-index loads a corpus file and writes its dense and sparse
// vectors to the configured vector store.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/pawsense/vetagent/internal/app"
	"github.com/pawsense/vetagent/internal/config"
	"github.com/pawsense/vetagent/internal/indexer"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	corpusPath := flag.String("corpus", "data/pet_records.json", "path to the corpus JSON file")
	workers := flag.Int("workers", 4, "number of concurrent indexing workers")
	batchSize := flag.Int("batch", 32, "records per embedding call")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	records, err := indexer.LoadCorpus(*corpusPath)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	log.Printf("Loaded %d records from %s", len(records), *corpusPath)

	store, err := app.NewVectorStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize vector store: %v", err)
	}
	defer store.Close()

	ixConfig := indexer.DefaultConfig()
	ixConfig.Workers = *workers
	ixConfig.BatchSize = *batchSize
	ixConfig.EmbeddingDim = cfg.LLM.EmbeddingDim

	ix := indexer.New(store, app.NewLLMClient(cfg), ixConfig)
	stats, err := ix.Run(context.Background(), records)
	if err != nil {
		log.Fatalf("Indexing failed: %v", err)
	}
	if stats.Failed > 0 {
		log.Printf("Indexing finished with failures: %d indexed, %d failed", stats.Indexed, stats.Failed)
		return
	}
	log.Printf("Indexing complete: %d records", stats.Indexed)
}
