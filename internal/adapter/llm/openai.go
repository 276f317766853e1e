package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"repolens/internal/errs"
	"repolens/internal/port"
)

const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 1500
	DefaultTimeout     = 60 * time.Second
)

var _ port.LLM = (*OpenAI)(nil)

// OpenAI talks to any chat/completions endpoint: OpenAI itself, DeepSeek,
// Ollama, and Azure OpenAI deployments.
type OpenAI struct {
	endpoint    string
	headerName  string
	headerValue string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Options are the generation settings shared by all clients.
type Options struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Temperature <= 0 {
		o.Temperature = DefaultTemperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

func NewOpenAI(apiKey, model string, opts Options) *OpenAI {
	return NewOpenAICompatible(apiKey, model, "https://api.openai.com/v1", opts)
}

func NewDeepSeek(apiKey, model string, opts Options) *OpenAI {
	return NewOpenAICompatible(apiKey, model, "https://api.deepseek.com/v1", opts)
}

func NewOllama(model, baseURL string, opts Options) *OpenAI {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return NewOpenAICompatible("ollama", model, baseURL, opts)
}

func NewOpenAICompatible(apiKey, model, baseURL string, opts Options) *OpenAI {
	opts = opts.withDefaults()
	return &OpenAI{
		endpoint:    strings.TrimRight(baseURL, "/") + "/chat/completions",
		headerName:  "Authorization",
		headerValue: "Bearer " + apiKey,
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		client:      &http.Client{Timeout: opts.Timeout},
	}
}

// NewAzureOpenAI targets a deployment of an Azure OpenAI resource.
// The model name only labels the client; the deployment selects the model.
func NewAzureOpenAI(apiKey, endpoint, deployment, apiVersion, model string, opts Options) *OpenAI {
	opts = opts.withDefaults()
	if apiVersion == "" {
		apiVersion = "2024-06-01"
	}
	if model == "" {
		model = deployment
	}
	u := strings.TrimRight(endpoint, "/") + "/openai/deployments/" + url.PathEscape(deployment) +
		"/chat/completions?api-version=" + url.QueryEscape(apiVersion)
	return &OpenAI{
		endpoint:    u,
		headerName:  "api-key",
		headerValue: apiKey,
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		client:      &http.Client{Timeout: opts.Timeout},
	}
}

func (o *OpenAI) ModelName() string { return o.model }

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	return o.CompleteWithSystem(ctx, "", prompt)
}

func (o *OpenAI) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	const op = "chat completion"

	var messages []chatMessage
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	reqBody := chatRequest{
		Messages:    messages,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}
	if o.headerName == "Authorization" {
		reqBody.Model = o.model
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(o.headerName, o.headerValue)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", errs.NewTransport(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.NewTransport(op, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", errs.FromStatus(op, resp.StatusCode, body)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return "", errs.NewParse(op, err)
	}
	if chat.Error != nil {
		return "", errs.Transportf(op, "API error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return "", errs.Transportf(op, "empty response from %s", o.model)
	}
	return chat.Choices[0].Message.Content, nil
}
