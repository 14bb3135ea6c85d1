package genner

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"reclaim/internal/logging"
	"reclaim/internal/transcript"
)

// GeminiConfig selects the model and credentials for the Gemini backend.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// DefaultGeminiConfig returns the backend defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:      apiKey,
		Model:       "gemini-2.0-flash",
		Temperature: 0.7,
	}
}

// Gemini is a Genner backed by Google's Gemini API.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGemini creates the backend client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genner: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("genner: create client: %w", err)
	}
	return &Gemini{client: client, cfg: cfg}, nil
}

// GenerateCode completes the transcript and extracts a program from it.
func (g *Gemini) GenerateCode(ctx context.Context, msgs []transcript.Message) (string, string, error) {
	raw, err := g.complete(ctx, msgs)
	if err != nil {
		return "", "", err
	}
	code, err := ExtractCode(raw)
	if err != nil {
		return "", raw, err
	}
	return code, raw, nil
}

// GenerateList completes the transcript and extracts a string list from it.
func (g *Gemini) GenerateList(ctx context.Context, msgs []transcript.Message) ([]string, string, error) {
	raw, err := g.complete(ctx, msgs)
	if err != nil {
		return nil, "", err
	}
	items, err := ExtractList(raw)
	if err != nil {
		return nil, raw, err
	}
	return items, raw, nil
}

func (g *Gemini) complete(ctx context.Context, msgs []transcript.Message) (string, error) {
	log := logging.Get(logging.CategoryGenner)

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.cfg.Temperature),
	}

	var contents []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case transcript.RoleSystem:
			// Gemini takes the system turn out of band.
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case transcript.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("genner: completion: %w", err)
	}

	text := result.Text()
	log.Debugw("completion received", "model", g.cfg.Model, "chars", len(text))
	if strings.TrimSpace(text) == "" {
		return "", &GenerationError{Op: "completion", Err: fmt.Errorf("model returned no text")}
	}
	return text, nil
}
