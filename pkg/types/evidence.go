package types

import (
	"fmt"
	"strings"
)

// SearchEvidence is one retrieved corpus unit, scored and tagged with the
// retrieval path(s) that produced it. Evidence is transient: it lives for a
// single retrieval call and is never persisted across turns.
type SearchEvidence struct {
	// ID is the stable corpus identifier of the underlying record.
	ID string `json:"id"`

	// Score is the fused (or reranked, when reranking ran) relevance score.
	Score float64 `json:"score"`

	// Text is the record's observation text.
	Text string `json:"text"`

	// Metadata carries the record payload (species, breed, keywords,
	// condition).
	Metadata map[string]any `json:"metadata,omitempty"`

	// Provenance records which retrieval paths surfaced this item:
	// "dense", "sparse", "dense+sparse", or "reranked".
	Provenance string `json:"provenance"`
}

// MetaString returns a string-valued metadata field, or fallback when the
// field is missing or not a string.
func (e SearchEvidence) MetaString(key, fallback string) string {
	if v, ok := e.Metadata[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Keywords flattens the symptom_keywords metadata entry, which arrives
// either as []string (from Go callers) or []any (from JSON payloads).
func (e SearchEvidence) Keywords() string {
	switch v := e.Metadata["symptom_keywords"].(type) {
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	case string:
		return v
	default:
		return ""
	}
}

// PromptBlock renders the evidence in the fixed block format consumed by the
// actor and critic prompts.
func (e SearchEvidence) PromptBlock() string {
	return fmt.Sprintf(
		"Doc ID: %s\n"+
			"Source: %s\n"+
			"Species: %s\n"+
			"Breed: %s\n"+
			"Symptoms: %s\n"+
			"Symptom_keywords: %s\n"+
			"Diagnosis: %s\n",
		e.ID,
		e.Provenance,
		e.MetaString("species", "unknown"),
		e.MetaString("specific_breed", "unknown"),
		e.Text,
		e.Keywords(),
		e.MetaString("condition", "unknown"),
	)
}

// FormatEvidence renders a slice of evidence as the newline-joined block list
// used in prompts.
func FormatEvidence(evidence []SearchEvidence) string {
	blocks := make([]string, 0, len(evidence))
	for _, e := range evidence {
		blocks = append(blocks, e.PromptBlock())
	}
	return strings.Join(blocks, "\n")
}
