package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"repolens/internal/errs"
	"repolens/internal/port"
)

const DefaultGeminiModel = "gemini-2.5-flash"

var _ port.LLM = (*Gemini)(nil)

// Gemini generates completions through the Google GenAI SDK.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGemini builds a Gemini API client. An empty baseURL uses the SDK's
// default endpoint.
func NewGemini(ctx context.Context, apiKey, model, baseURL string, opts Options) (*Gemini, error) {
	if apiKey == "" {
		return nil, errs.Configurationf("llm.NewGemini", "GenAI API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	opts = opts.withDefaults()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{
		client:      client,
		model:       model,
		temperature: float32(opts.Temperature),
		maxTokens:   int32(opts.MaxTokens),
	}, nil
}

func (g *Gemini) ModelName() string { return g.model }

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	return g.CompleteWithSystem(ctx, "", prompt)
}

func (g *Gemini) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", errs.NewTransport("gemini generate", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errs.Transportf("gemini generate", "empty response from %s", g.model)
	}
	return text, nil
}
