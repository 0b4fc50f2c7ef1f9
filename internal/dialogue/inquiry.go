package dialogue

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pawsense/vetagent/internal/llm"
	"github.com/pawsense/vetagent/pkg/types"
)

// Phase is the inquiry loop's position for one session.
type Phase string

const (
	// PhaseCollectingMandatory means at least one mandatory profile field is
	// still missing and the turn budget allows another question.
	PhaseCollectingMandatory Phase = "collecting_mandatory"

	// PhaseCollectingOptional means the mandatory fields are complete and one
	// extra round may ask for age, sex or weight.
	PhaseCollectingOptional Phase = "collecting_optional"

	// PhaseReady means inquiry is over and diagnosis proceeds with the
	// profile as it stands.
	PhaseReady Phase = "ready"

	// PhaseAborted means the turn budget ran out with mandatory fields still
	// missing. The conversation ends without a diagnosis.
	PhaseAborted Phase = "aborted"
)

// maxAsksPerQuestion caps how many fields one clarifying question may target.
const maxAsksPerQuestion = 2

// historyWindow is how many recent messages the question prompt sees.
const historyWindow = 6

// InquiryConfig bounds the inquiry loop.
type InquiryConfig struct {
	// MaxTurns is the total clarifying-question budget per session.
	MaxTurns int

	// MaxOptionalRounds caps how many turns may be spent on optional fields.
	MaxOptionalRounds int
}

// DefaultInquiryConfig is the production policy: at most 3 questions total,
// at most 1 of them about optional fields.
func DefaultInquiryConfig() InquiryConfig {
	return InquiryConfig{MaxTurns: 3, MaxOptionalRounds: 1}
}

// InquiryController decides whether a session needs another clarifying
// question and generates it. It never blocks a session forever: the phase
// computation guarantees Ready or Aborted within MaxTurns questions.
type InquiryController struct {
	generator llm.TextGenerator
	config    InquiryConfig
}

// NewInquiryController creates a controller. A zero MaxTurns selects the
// default policy.
func NewInquiryController(generator llm.TextGenerator, config InquiryConfig) *InquiryController {
	if config.MaxTurns <= 0 {
		config = DefaultInquiryConfig()
	}
	return &InquiryController{generator: generator, config: config}
}

// Assess computes the inquiry phase from the session state alone. It does
// not mutate the state and calls no model.
func (c *InquiryController) Assess(state *types.ConversationState) Phase {
	missing := state.Profile.MissingMandatory()
	if state.InquiryTurns >= c.config.MaxTurns {
		if len(missing) > 0 {
			return PhaseAborted
		}
		return PhaseReady
	}
	if len(missing) > 0 {
		return PhaseCollectingMandatory
	}
	if len(state.Profile.MissingOptional()) > 0 && state.AdditionalInquiryTurns < c.config.MaxOptionalRounds {
		return PhaseCollectingOptional
	}
	return PhaseReady
}

// targets returns the fields the next question should ask for, capped at
// maxAsksPerQuestion, for the given phase.
func (c *InquiryController) targets(state *types.ConversationState, phase Phase) []string {
	var fields []string
	switch phase {
	case PhaseCollectingMandatory:
		fields = state.Profile.MissingMandatory()
	case PhaseCollectingOptional:
		fields = state.Profile.MissingOptional()
	}
	if len(fields) > maxAsksPerQuestion {
		fields = fields[:maxAsksPerQuestion]
	}
	return fields
}

// formatHistory renders messages as a plain transcript for prompt use.
func formatHistory(messages []types.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		role := "User"
		if m.Role == types.RoleAssistant {
			role = "Assistant"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, m.Content))
	}
	return strings.Join(lines, "\n")
}

// fallbackQuestion is the deterministic question used when generation fails.
// It asks for the highest-priority missing field in plain English.
func fallbackQuestion(targets []string) string {
	if len(targets) == 0 {
		return "Could you tell me a bit more about your pet?"
	}
	switch targets[0] {
	case types.FieldSymptoms:
		return "What symptoms or unusual behavior have you noticed in your pet?"
	case types.FieldSpecies:
		return "What kind of animal is your pet (for example a dog, cat or rabbit)?"
	case types.FieldName:
		return "What is your pet's name?"
	case types.FieldBreed:
		return "Do you know your pet's breed?"
	default:
		return "If you know them, could you share your pet's age, sex or weight?"
	}
}

type inquiryQuestion struct {
	Question string `json:"question"`
}

// Ask generates the next clarifying question for the given phase. The phase
// must be one of the collecting phases. Generation failures degrade to a
// deterministic question so the session always moves forward.
func (c *InquiryController) Ask(ctx context.Context, state *types.ConversationState, phase Phase) string {
	targets := c.targets(state, phase)
	history := formatHistory(state.RecentHistory(historyWindow))

	result, err := llm.Invoke[inquiryQuestion](ctx, c.generator, llm.InquiryQuestionPrompt(history, state.Profile, targets))
	if err != nil {
		log.Printf("dialogue: question generation failed for session %s, using fallback: %v", state.SessionID, err)
		return fallbackQuestion(targets)
	}
	question := strings.TrimSpace(result.Question)
	if question == "" {
		log.Printf("dialogue: question generation returned empty text for session %s, using fallback", state.SessionID)
		return fallbackQuestion(targets)
	}
	return question
}
