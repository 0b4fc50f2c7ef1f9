package review

import (
	"context"

	"github.com/pawsense/vetagent/internal/llm"
	"github.com/pawsense/vetagent/pkg/types"
)

// Pipeline runs the full actor/critic pass: propose once, validate once.
// There is no retry loop; a rejected draft surfaces the critic's safe
// response instead of iterating.
type Pipeline struct {
	actor  *Actor
	critic *Critic
}

// NewPipeline creates the diagnosis pipeline on a shared generator.
func NewPipeline(generator llm.TextGenerator) *Pipeline {
	return &Pipeline{
		actor:  NewActor(generator),
		critic: NewCritic(generator),
	}
}

// Diagnose returns the draft (possibly nil) and the verdict whose
// FinalResponse is always safe to show the user.
func (p *Pipeline) Diagnose(ctx context.Context, profile types.PatientProfile, evidence []types.SearchEvidence) (*types.DiagnosisDraft, types.ReviewVerdict) {
	draft, err := p.actor.Propose(ctx, profile, evidence)
	if err != nil {
		// Propose only fails on model errors; the critic path for a nil
		// draft produces the canned no-diagnosis response.
		draft = nil
	}
	verdict := p.critic.Review(ctx, profile, evidence, draft)
	return draft, verdict
}
