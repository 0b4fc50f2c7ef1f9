// Package indexer builds the searchable corpus: it loads raw pet medical
// records, cleans them, and writes dense and sparse vectors to the store
// through a bounded worker pool.
package indexer

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/pawsense/vetagent/pkg/types"
)

// LoadCorpus reads a JSON array of raw records from path and returns them
// cleaned. Records failing validation are dropped and counted, not fatal.
func LoadCorpus(path string) ([]types.PetRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("indexer: read corpus %s: %w", path, err)
	}

	var raw []types.PetRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("indexer: parse corpus %s: %w", path, err)
	}

	records := make([]types.PetRecord, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		cleaned := r.Clean()
		if err := cleaned.Validate(); err != nil {
			log.Printf("indexer: dropping record: %v", err)
			dropped++
			continue
		}
		records = append(records, cleaned)
	}
	if dropped > 0 {
		log.Printf("indexer: dropped %d of %d records during loading", dropped, len(raw))
	}
	return records, nil
}
