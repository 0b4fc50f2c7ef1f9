// Package dialogue implements the conversational layer: profile delta
// extraction, intent routing, and the inquiry loop that drives a session
// toward a complete patient profile.
package dialogue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pawsense/vetagent/internal/llm"
	"github.com/pawsense/vetagent/pkg/types"
)

// ProfileExtractor turns one user message into a profile delta. The delta
// contains only information asserted in that message; merging it into the
// session profile is the caller's job.
type ProfileExtractor struct {
	generator llm.TextGenerator
}

// NewProfileExtractor creates an extractor backed by the given generator.
func NewProfileExtractor(generator llm.TextGenerator) *ProfileExtractor {
	return &ProfileExtractor{generator: generator}
}

// asString coerces a loosely-typed JSON value to a string. Models
// occasionally emit numbers for age or weight despite the schema.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool, int:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

// asStringList coerces a JSON value to a string slice, accepting both a bare
// string and an array of strings.
func asStringList(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Extract runs delta extraction against the latest user input. lastQuestion
// is the assistant message the input answers; pass the empty string at the
// start of a session. The returned delta is already normalized.
func (e *ProfileExtractor) Extract(ctx context.Context, lastQuestion string, profile types.PatientProfile, userInput string) (types.PatientProfile, error) {
	prompt := llm.ExtractionPrompt(lastQuestion, profile, userInput)
	raw, err := llm.Invoke[map[string]any](ctx, e.generator, prompt)
	if err != nil {
		return types.PatientProfile{}, fmt.Errorf("dialogue: extract profile delta: %w", err)
	}

	fields := *raw
	delta := types.PatientProfile{
		Name:     asString(fields["name"]),
		Species:  types.Species(asString(fields["species"])),
		Breed:    asString(fields["breed"]),
		Symptoms: asStringList(fields["symptoms"]),
		Age:      asString(fields["age"]),
		Sex:      asString(fields["sex"]),
		Weight:   asString(fields["weight"]),
		Language: asString(fields["language"]),
	}
	return delta.Normalize(), nil
}
