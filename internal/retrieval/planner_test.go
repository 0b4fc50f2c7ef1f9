package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pawsense/vetagent/pkg/types"
)

type stubGenerator struct {
	response string
	err      error
}

func (g *stubGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	return g.response, g.err
}
func (g *stubGenerator) GetModel() string { return "stub-model" }

func dogProfile() types.PatientProfile {
	return types.PatientProfile{
		Name:     "Rex",
		Species:  types.SpeciesDog,
		Breed:    "labrador",
		Symptoms: []string{"vomiting", "bloody diarrhea"},
	}
}

func TestPlanReturnsBothViews(t *testing.T) {
	gen := &stubGenerator{response: `{
		"simulated_observation": "my dog keeps throwing up and has bloody stool",
		"medical_expansion": "canine hemorrhagic gastroenteritis emesis"
	}`}
	p := NewQueryPlanner(gen)

	queries := p.Plan(context.Background(), dogProfile())
	assert.Equal(t, "my dog keeps throwing up and has bloody stool", queries.SimulatedObservation)
	assert.Equal(t, "canine hemorrhagic gastroenteritis emesis", queries.MedicalExpansion)
	assert.Len(t, queries.List(), 2)
}

func TestPlanModelFailureUsesFallback(t *testing.T) {
	p := NewQueryPlanner(&stubGenerator{err: errors.New("timeout")})

	queries := p.Plan(context.Background(), dogProfile())
	assert.Equal(t, "dog vomiting, bloody diarrhea", queries.SimulatedObservation)
	assert.Empty(t, queries.MedicalExpansion)
}

func TestPlanBlankViewsUseFallback(t *testing.T) {
	gen := &stubGenerator{response: `{"simulated_observation": "  ", "medical_expansion": ""}`}
	p := NewQueryPlanner(gen)

	queries := p.Plan(context.Background(), dogProfile())
	assert.Equal(t, "dog vomiting, bloody diarrhea", queries.SimulatedObservation)
}

func TestFallbackQueryWithoutSpecies(t *testing.T) {
	profile := types.PatientProfile{Symptoms: []string{"sneezing"}}
	assert.Equal(t, "sneezing", fallbackQuery(profile))
}
