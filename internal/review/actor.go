// Package review implements the diagnosis stage: an actor proposes a single
// most-likely condition from retrieved evidence, and a critic validates the
// proposal before anything reaches the user. No diagnosis text is ever shown
// without passing the critic.
package review

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pawsense/vetagent/internal/llm"
	"github.com/pawsense/vetagent/pkg/types"
)

// Actor proposes a diagnosis draft from a profile and its evidence.
type Actor struct {
	generator llm.TextGenerator
}

// NewActor creates an actor backed by the given generator.
func NewActor(generator llm.TextGenerator) *Actor {
	return &Actor{generator: generator}
}

// Propose returns the actor's draft, or nil when no draft can be grounded:
// empty evidence short-circuits without a model call, and a draft naming no
// condition is discarded.
func (a *Actor) Propose(ctx context.Context, profile types.PatientProfile, evidence []types.SearchEvidence) (*types.DiagnosisDraft, error) {
	if len(evidence) == 0 {
		log.Printf("review: no evidence available, skipping diagnosis proposal")
		return nil, nil
	}

	prompt := llm.ActorPrompt(profile, types.FormatEvidence(evidence))
	draft, err := llm.Invoke[types.DiagnosisDraft](ctx, a.generator, prompt)
	if err != nil {
		return nil, fmt.Errorf("review: propose diagnosis: %w", err)
	}
	if strings.TrimSpace(draft.MostLikelyCondition) == "" {
		log.Printf("review: actor named no condition, discarding draft")
		return nil, nil
	}
	return draft, nil
}
