package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiConfig holds configuration for the Gemini generator.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:      apiKey,
		Model:       "gemini-2.0-flash",
		Temperature: 0.2,
	}
}

// GeminiGenerator implements Generator using Google's Gemini API with
// schema-enforced JSON output (generationConfig.responseJsonSchema).
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewGeminiGenerator creates a Gemini-backed structured generator.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiGenerator{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

// Generate requests a completion constrained to the given schema and
// returns the raw JSON body. Transport and API failures are reported as
// *GenerationError; no retries are attempted here.
func (g *GeminiGenerator) Generate(ctx context.Context, schema *Schema, prompt string) ([]byte, error) {
	rawSchema, err := schema.JSON()
	if err != nil {
		return nil, &GenerationError{Op: "generate", Schema: schema.Name, Err: err}
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: rawSchema,
		Temperature:        genai.Ptr(g.temperature),
		MaxOutputTokens:    schema.MaxTokens,
	}

	g.logger.Debug("structured generation request",
		zap.String("model", g.model),
		zap.String("schema", schema.Name),
		zap.Int("prompt_len", len(prompt)))

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt), cfg)
	if err != nil {
		return nil, &GenerationError{Op: "generate", Schema: schema.Name, Err: err}
	}

	text := resp.Text()
	if text == "" {
		return nil, &GenerationError{
			Op:     "generate",
			Schema: schema.Name,
			Err:    fmt.Errorf("empty completion from model %s", g.model),
		}
	}

	return []byte(text), nil
}
