// Package llm provides the structured-generation client used by the
// pipeline stages. A Generator maps a prompt plus a target JSON schema to
// raw JSON conforming to that schema; GenerateAs layers typed decoding and
// validation on top so stages never touch provider-specific clients.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Generator is the provider-agnostic structured-output interface.
// Implementations must return JSON conforming to the given schema or a
// *GenerationError. The pipeline never retries a failed call.
type Generator interface {
	Generate(ctx context.Context, schema *Schema, prompt string) ([]byte, error)
}

// Schema is a named, canonical JSON schema for one structured-output shape.
// The raw schema text is parsed lazily, exactly once.
type Schema struct {
	// Name identifies the schema in provider requests and error messages.
	Name string

	// MaxTokens caps the completion length for calls using this schema.
	MaxTokens int32

	raw    string
	once   sync.Once
	parsed map[string]any
	err    error
}

// MustSchema parses and registers a schema constant. It panics on invalid
// JSON; schema constants are package-level and exercised by tests, so a
// malformed one is a programming error.
func MustSchema(name string, maxTokens int32, raw string) *Schema {
	s := &Schema{Name: name, MaxTokens: maxTokens, raw: raw}
	if _, err := s.JSON(); err != nil {
		panic(fmt.Sprintf("llm: invalid schema %s: %v", name, err))
	}
	return s
}

// JSON returns the parsed schema object for providers that take a raw
// schema (Gemini's responseJsonSchema, OpenAI-style json_schema).
func (s *Schema) JSON() (map[string]any, error) {
	s.once.Do(func() {
		s.err = json.Unmarshal([]byte(s.raw), &s.parsed)
	})
	return s.parsed, s.err
}

// Validator is implemented by output types that carry data-contract
// constraints the schema alone cannot express (confidence bounds, enums).
type Validator interface {
	Validate() error
}

// GenerateAs invokes the generator and decodes the response into T.
// A response that is not valid JSON for T, or that fails T's Validate,
// is a data-contract violation reported as *GenerationError with the raw
// payload attached for debugging.
func GenerateAs[T any](ctx context.Context, g Generator, schema *Schema, prompt string) (*T, error) {
	raw, err := g.Generate(ctx, schema, prompt)
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &GenerationError{
			Op:     "unmarshal",
			Schema: schema.Name,
			Raw:    string(raw),
			Err:    err,
		}
	}

	if v, ok := any(&out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, &GenerationError{
				Op:     "validate",
				Schema: schema.Name,
				Raw:    string(raw),
				Err:    err,
			}
		}
	}

	return &out, nil
}
