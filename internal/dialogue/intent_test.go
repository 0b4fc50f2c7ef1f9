package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pawsense/vetagent/pkg/types"
)

func TestClassifyDiagnosis(t *testing.T) {
	gen := &stubGenerator{response: `{"intent": "intent_diagnosis", "confidence": 0.92}`}
	c := NewIntentClassifier(gen)

	intent, confidence := c.Classify(context.Background(), "my dog keeps vomiting")
	assert.Equal(t, types.IntentDiagnosis, intent)
	assert.InDelta(t, 0.92, confidence, 1e-9)
}

func TestClassifyChitChat(t *testing.T) {
	gen := &stubGenerator{response: `{"intent": "chit_chat", "confidence": 0.99}`}
	c := NewIntentClassifier(gen)

	intent, _ := c.Classify(context.Background(), "hi there!")
	assert.Equal(t, types.IntentChitChat, intent)
}

func TestClassifyFailureDefaultsToDiagnosis(t *testing.T) {
	c := NewIntentClassifier(&stubGenerator{err: errors.New("timeout")})

	intent, confidence := c.Classify(context.Background(), "my cat is sick")
	assert.Equal(t, types.IntentDiagnosis, intent)
	assert.Zero(t, confidence)
}

func TestClassifyUnknownLabelDefaultsToDiagnosis(t *testing.T) {
	gen := &stubGenerator{response: `{"intent": "intent_emergency", "confidence": 0.7}`}
	c := NewIntentClassifier(gen)

	intent, _ := c.Classify(context.Background(), "help")
	assert.Equal(t, types.IntentDiagnosis, intent)
}
