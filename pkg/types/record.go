package types

import (
	"fmt"
	"sort"
	"strings"
)

// PetRecord is one unit of the indexed medical corpus: an owner observation
// paired with the condition it was diagnosed as, plus retrieval metadata.
type PetRecord struct {
	ID              int      `json:"id"`
	Text            string   `json:"text"`
	Condition       string   `json:"condition"`
	Species         Species  `json:"species"`
	SpecificBreed   string   `json:"specific_breed"`
	SymptomKeywords []string `json:"symptom_keywords"`
}

// invalidBreeds are placeholder breed values that carry no information.
var invalidBreeds = map[string]bool{
	"": true, "unknown": true, "generic": true, "none": true,
	"n/a": true, "pet": true,
}

// Clean normalizes a raw corpus record in place and returns it:
// species collapses onto the enum, a placeholder breed falls back to the
// species value, and symptom keywords are lowercased, deduplicated and
// sorted. A missing condition becomes "Unknown".
func (r PetRecord) Clean() PetRecord {
	r.Species = NormalizeSpecies(string(r.Species))

	breed := strings.ToLower(strings.TrimSpace(r.SpecificBreed))
	if invalidBreeds[breed] {
		r.SpecificBreed = string(r.Species)
	} else {
		r.SpecificBreed = breed
	}

	seen := make(map[string]bool, len(r.SymptomKeywords))
	keywords := make([]string, 0, len(r.SymptomKeywords))
	for _, kw := range r.SymptomKeywords {
		cleaned := strings.ToLower(strings.TrimSpace(kw))
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		keywords = append(keywords, cleaned)
	}
	sort.Strings(keywords)
	r.SymptomKeywords = keywords

	if strings.TrimSpace(r.Condition) == "" {
		r.Condition = "Unknown"
	}
	return r
}

// Validate reports whether the record can be indexed at all.
func (r PetRecord) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("record %d: empty observation text", r.ID)
	}
	return nil
}

// DenseContent builds the text embedded for semantic (dense) search.
func (r PetRecord) DenseContent() string {
	return fmt.Sprintf("category: %s. specific breed: %s. symptoms: %s. observation: %s",
		r.Species, r.SpecificBreed, strings.Join(r.SymptomKeywords, ", "), r.Text)
}

// SparseContent builds the text tokenized for keyword (sparse) search.
func (r PetRecord) SparseContent() string {
	return fmt.Sprintf("%s %s %s %s",
		r.Species, r.SpecificBreed, strings.Join(r.SymptomKeywords, " "), r.Text)
}

// Payload returns the metadata stored alongside the record's vectors.
func (r PetRecord) Payload() map[string]any {
	return map[string]any{
		"id":               r.ID,
		"species":          string(r.Species),
		"specific_breed":   r.SpecificBreed,
		"symptom_keywords": r.SymptomKeywords,
		"text":             r.Text,
		"condition":        r.Condition,
	}
}
