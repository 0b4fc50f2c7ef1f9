package review

import (
	"context"
	"log"
	"strings"

	"github.com/pawsense/vetagent/internal/llm"
	"github.com/pawsense/vetagent/pkg/types"
)

// Canned user-facing responses for paths where no validated diagnosis exists.
// They deliberately avoid naming any condition.
const (
	// ResponseNoDiagnosis covers missing evidence or a missing draft.
	ResponseNoDiagnosis = "I'm sorry, I couldn't process the medical records to provide a diagnosis at this time. Please consult a veterinarian."

	// ResponseRejected covers a draft the critic could not validate.
	ResponseRejected = "Based on the information and records available, I cannot confidently determine the cause of your pet's symptoms. Please consult a licensed veterinarian for a hands-on examination."
)

// Critic validates an actor draft against the evidence it claims to be
// grounded in. Deterministic checks run before any model call so an
// ungrounded draft is rejected even when the model is unavailable.
type Critic struct {
	generator llm.TextGenerator
}

// NewCritic creates a critic backed by the given generator.
func NewCritic(generator llm.TextGenerator) *Critic {
	return &Critic{generator: generator}
}

// conditionGrounded reports whether the proposed condition appears in the
// evidence, either as a record's condition metadata or inside its text.
// Matching is case-insensitive.
func conditionGrounded(condition string, evidence []types.SearchEvidence) bool {
	needle := strings.ToLower(strings.TrimSpace(condition))
	if needle == "" {
		return false
	}
	for _, e := range evidence {
		if strings.ToLower(e.MetaString("condition", "")) == needle {
			return true
		}
		if strings.Contains(strings.ToLower(e.Text), needle) {
			return true
		}
		if strings.Contains(strings.ToLower(e.Keywords()), needle) {
			return true
		}
	}
	return false
}

// Review produces the verdict for a draft. A nil draft or empty evidence is
// rejected immediately; a condition absent from the evidence is rejected as a
// hallucination; otherwise the model judges symptom consistency and writes
// the user-facing response. Model failure degrades to rejection, never to an
// unreviewed diagnosis.
func (c *Critic) Review(ctx context.Context, profile types.PatientProfile, evidence []types.SearchEvidence, draft *types.DiagnosisDraft) types.ReviewVerdict {
	if draft == nil || len(evidence) == 0 {
		return types.ReviewVerdict{
			Approved:      false,
			Critique:      "no draft or no evidence to validate against",
			FinalResponse: ResponseNoDiagnosis,
		}
	}
	if !conditionGrounded(draft.MostLikelyCondition, evidence) {
		log.Printf("review: condition %q not present in evidence, rejecting draft", draft.MostLikelyCondition)
		return types.ReviewVerdict{
			Approved:      false,
			Critique:      "proposed condition does not appear in the retrieved evidence",
			FinalResponse: ResponseRejected,
		}
	}

	prompt := llm.CriticPrompt(profile, types.FormatEvidence(evidence), *draft)
	verdict, err := llm.Invoke[types.ReviewVerdict](ctx, c.generator, prompt)
	if err != nil {
		log.Printf("review: critic model call failed, rejecting draft: %v", err)
		return types.ReviewVerdict{
			Approved:      false,
			Critique:      "validation unavailable",
			FinalResponse: ResponseRejected,
		}
	}

	if strings.TrimSpace(verdict.FinalResponse) == "" {
		if verdict.Approved {
			verdict.FinalResponse = draft.AdviceForOwner
		} else {
			verdict.FinalResponse = ResponseRejected
		}
	}
	return *verdict
}
