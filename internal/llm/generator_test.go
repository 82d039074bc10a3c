package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticGenerator struct {
	payload []byte
	err     error
}

func (g staticGenerator) Generate(context.Context, *Schema, string) ([]byte, error) {
	return g.payload, g.err
}

type bounded struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func (b *bounded) Validate() error {
	if b.Confidence < 0 || b.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", b.Confidence)
	}
	return nil
}

var testSchema = MustSchema("Bounded", 100, `{
  "type": "object",
  "required": ["label", "confidence"],
  "properties": {
    "label": {"type": "string"},
    "confidence": {"type": "number"}
  }
}`)

func TestMustSchema_PanicsOnInvalidJSON(t *testing.T) {
	assert.Panics(t, func() {
		MustSchema("Broken", 10, `{not json`)
	})
}

func TestSchema_JSONParsesOnce(t *testing.T) {
	parsed, err := testSchema.JSON()
	require.NoError(t, err)
	assert.Equal(t, "object", parsed["type"])

	again, err := testSchema.JSON()
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%p", parsed), fmt.Sprintf("%p", again))
}

func TestGenerateAs_DecodesTypedOutput(t *testing.T) {
	g := staticGenerator{payload: []byte(`{"label": "ok", "confidence": 0.75}`)}

	out, err := GenerateAs[bounded](context.Background(), g, testSchema, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Label)
	assert.InDelta(t, 0.75, out.Confidence, 1e-9)
}

func TestGenerateAs_ReportsUnmarshalAsGenerationError(t *testing.T) {
	g := staticGenerator{payload: []byte(`not json at all`)}

	_, err := GenerateAs[bounded](context.Background(), g, testSchema, "prompt")
	require.Error(t, err)

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "unmarshal", gerr.Op)
	assert.Equal(t, "Bounded", gerr.Schema)
	assert.Equal(t, "not json at all", gerr.Raw)
}

func TestGenerateAs_RunsValidation(t *testing.T) {
	g := staticGenerator{payload: []byte(`{"label": "ok", "confidence": 3.0}`)}

	_, err := GenerateAs[bounded](context.Background(), g, testSchema, "prompt")
	require.Error(t, err)

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "validate", gerr.Op)
}

func TestGenerateAs_PropagatesGeneratorError(t *testing.T) {
	cause := errors.New("rate limited")
	g := staticGenerator{err: &GenerationError{Op: "generate", Schema: "Bounded", Err: cause}}

	_, err := GenerateAs[bounded](context.Background(), g, testSchema, "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}
