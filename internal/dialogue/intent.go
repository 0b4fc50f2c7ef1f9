package dialogue

import (
	"context"
	"log"

	"github.com/pawsense/vetagent/internal/llm"
	"github.com/pawsense/vetagent/pkg/types"
)

// IntentClassifier routes the opening user message to a workflow branch.
type IntentClassifier struct {
	generator llm.TextGenerator
}

// NewIntentClassifier creates a classifier backed by the given generator.
func NewIntentClassifier(generator llm.TextGenerator) *IntentClassifier {
	return &IntentClassifier{generator: generator}
}

type intentResult struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

var knownIntents = map[types.Intent]bool{
	types.IntentDiagnosis:  true,
	types.IntentTreatment:  true,
	types.IntentKnowledge:  true,
	types.IntentChitChat:   true,
	types.IntentOutOfScope: true,
}

// Classify returns the detected intent and the model's confidence. A model
// failure or an out-of-taxonomy label falls back to the diagnosis intent so
// a potentially sick pet is never turned away by a routing hiccup.
func (c *IntentClassifier) Classify(ctx context.Context, userInput string) (types.Intent, float64) {
	result, err := llm.Invoke[intentResult](ctx, c.generator, llm.IntentPrompt(userInput))
	if err != nil {
		log.Printf("dialogue: intent classification failed, defaulting to diagnosis: %v", err)
		return types.IntentDiagnosis, 0
	}

	intent := types.Intent(result.Intent)
	if !knownIntents[intent] {
		log.Printf("dialogue: model returned unknown intent %q, defaulting to diagnosis", result.Intent)
		return types.IntentDiagnosis, result.Confidence
	}
	return intent, result.Confidence
}
