package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/krshsl/praxis/coach/analysis"
	"google.golang.org/genai"
)

const DefaultModelName = "gemini-2.5-flash"

// GeminiService is the generative-text collaborator behind every analyzer.
type GeminiService struct {
	genaiClient *genai.Client
	model       string
}

var _ analysis.Generator = (*GeminiService)(nil)

func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not configured")
	}
	if model == "" {
		model = DefaultModelName
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiService{genaiClient: genaiClient, model: model}, nil
}

// Generate asks for a JSON response at the given temperature.
func (g *GeminiService) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	if g == nil || g.genaiClient == nil {
		return "", fmt.Errorf("genai client not initialized")
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(temperature)),
		ResponseMIMEType: "application/json",
		SystemInstruction: genai.NewContentFromText(
			"You are an expert interview coach. Respond with valid JSON only.",
			genai.RoleUser,
		),
	}

	start := time.Now()
	result, err := g.genaiClient.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("empty response from model")
	}

	slog.Debug("Generated content",
		"model", g.model,
		"prompt_length", len(prompt),
		"response_length", len(text),
		"duration", time.Since(start))
	return text, nil
}
