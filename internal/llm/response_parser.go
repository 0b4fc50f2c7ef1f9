package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// ExtractJSON pulls the first complete JSON object out of model output that
// may be wrapped in markdown fences or surrounded by prose. Models add
// explanations despite instructions; the parser has to cope.
func ExtractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text
	}

	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return text
}

// DecodeStructured parses a model completion into the schema type T.
// A malformed payload is a schema violation and surfaces as *ModelError.
func DecodeStructured[T any](raw string) (*T, error) {
	var out T
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &out); err != nil {
		return nil, modelErr("parse", err)
	}
	return &out, nil
}

// Invoke runs one structured generation: prompt in, schema type T out.
// It is the Go shape of "generate structured output given a prompt and a
// schema"; transport failures and schema violations both surface as
// *ModelError.
func Invoke[T any](ctx context.Context, gen TextGenerator, prompt string) (*T, error) {
	raw, err := gen.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return DecodeStructured[T](raw)
}
