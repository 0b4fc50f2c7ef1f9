package retrieval

import (
	"context"
	"log"
	"strings"

	"github.com/pawsense/vetagent/internal/llm"
	"github.com/pawsense/vetagent/pkg/types"
)

// QueryPlanner rewrites a patient profile into two complementary search
// views: an owner-voice observation and a clinical-terminology expansion.
// The rewrite is best effort; a model failure falls back to a deterministic
// keyword query so retrieval always has input.
type QueryPlanner struct {
	generator llm.TextGenerator
}

// NewQueryPlanner creates a planner backed by the given text generator.
func NewQueryPlanner(generator llm.TextGenerator) *QueryPlanner {
	return &QueryPlanner{generator: generator}
}

// fallbackQuery builds the deterministic "species symptom, symptom" query
// used when query generation fails.
func fallbackQuery(profile types.PatientProfile) string {
	parts := make([]string, 0, 2)
	if profile.Species.Known() {
		parts = append(parts, string(profile.Species))
	}
	if len(profile.Symptoms) > 0 {
		parts = append(parts, strings.Join(profile.Symptoms, ", "))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Plan produces the search queries for a completed profile. Empty views
// from the model are dropped; if both views are unusable the deterministic
// fallback is returned instead.
func (p *QueryPlanner) Plan(ctx context.Context, profile types.PatientProfile) types.SearchQueries {
	queries, err := llm.Invoke[types.SearchQueries](ctx, p.generator, llm.QueryPlanPrompt(profile))
	if err != nil {
		log.Printf("planner: query generation failed, using fallback: %v", err)
		return types.SearchQueries{SimulatedObservation: fallbackQuery(profile)}
	}

	queries.SimulatedObservation = strings.TrimSpace(queries.SimulatedObservation)
	queries.MedicalExpansion = strings.TrimSpace(queries.MedicalExpansion)
	if len(queries.List()) == 0 {
		log.Printf("planner: query generation returned no usable views, using fallback")
		return types.SearchQueries{SimulatedObservation: fallbackQuery(profile)}
	}
	return *queries
}
