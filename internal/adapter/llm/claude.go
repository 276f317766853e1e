package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"repolens/internal/errs"
	"repolens/internal/port"
)

const (
	DefaultClaudeModel = "claude-sonnet-4-20250514"
	anthropicVersion   = "2023-06-01"
)

var _ port.LLM = (*Claude)(nil)

type Claude struct {
	apiKey      string
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewClaude(apiKey, model, baseURL string, opts Options) *Claude {
	opts = opts.withDefaults()
	if model == "" {
		model = DefaultClaudeModel
	}
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &Claude{
		apiKey:      apiKey,
		endpoint:    strings.TrimRight(baseURL, "/") + "/messages",
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		client:      &http.Client{Timeout: opts.Timeout},
	}
}

func (c *Claude) ModelName() string { return c.model }

func (c *Claude) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *Claude) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	const op = "claude messages"

	body := map[string]any{
		"model": c.model,
		"messages": []map[string]string{{
			"role":    "user",
			"content": prompt,
		}},
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
	}
	if system != "" {
		body["system"] = system
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errs.NewTransport(op, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.NewTransport(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errs.FromStatus(op, resp.StatusCode, respBytes)
	}

	var claudeResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &claudeResp); err != nil {
		return "", errs.NewParse(op, err)
	}
	if claudeResp.Error.Message != "" {
		return "", errs.Transportf(op, "API error: %s", claudeResp.Error.Message)
	}

	var text strings.Builder
	for _, block := range claudeResp.Content {
		if block.Type == "" || block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errs.Transportf(op, "empty response from Claude")
	}
	return text.String(), nil
}
