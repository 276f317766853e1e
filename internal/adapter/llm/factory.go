package llm

import (
	"context"
	"os"
	"strings"

	"repolens/config"
	"repolens/internal/errs"
	"repolens/internal/port"
)

// Provider names accepted in model.provider.
const (
	ProviderOpenAI   = "openai"
	ProviderAzure    = "azure"
	ProviderClaude   = "claude"
	ProviderGemini   = "gemini"
	ProviderDeepSeek = "deepseek"
	ProviderOllama   = "ollama"
	ProviderMock     = "mock"
)

// KeyEnv returns the environment variable holding the API key for cfg.
func KeyEnv(cfg config.ModelConfig) string {
	if cfg.APIKeyEnv != "" {
		return cfg.APIKeyEnv
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderAzure:
		return "AZURE_OPENAI_API_KEY"
	case ProviderClaude:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// New builds the model client named by cfg.Provider. A missing credential
// is a configuration error; callers treat it as "analysis disabled". An
// unknown provider is a validation error.
func New(ctx context.Context, cfg config.ModelConfig) (port.LLM, error) {
	const op = "llm.New"
	opts := Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens, Timeout: cfg.Timeout}
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case ProviderMock:
		return NewMock(), nil
	case ProviderOllama:
		return NewOllama(cfg.Model, cfg.BaseURL, opts), nil
	case ProviderOpenAI, ProviderAzure, ProviderClaude, ProviderGemini, ProviderDeepSeek, "":
	default:
		return nil, errs.Validationf(op, "unsupported provider: %s (supported: openai, azure, claude, gemini, deepseek, ollama, mock)", cfg.Provider)
	}

	keyEnv := KeyEnv(cfg)
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, errs.Configurationf(op, "API key not found in environment variable: %s", keyEnv)
	}

	switch provider {
	case ProviderAzure:
		endpoint := firstNonEmpty(cfg.BaseURL, os.Getenv("AZURE_OPENAI_ENDPOINT"))
		if endpoint == "" {
			return nil, errs.Configurationf(op, "Azure OpenAI endpoint is required (model.base_url or AZURE_OPENAI_ENDPOINT)")
		}
		deployment := firstNonEmpty(cfg.Deployment, os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME"), cfg.Model)
		apiVersion := firstNonEmpty(os.Getenv("AZURE_OPENAI_API_VERSION"), cfg.APIVersion)
		return NewAzureOpenAI(apiKey, endpoint, deployment, apiVersion, cfg.Model, opts), nil
	case ProviderClaude:
		return NewClaude(apiKey, cfg.Model, cfg.BaseURL, opts), nil
	case ProviderGemini:
		return NewGemini(ctx, apiKey, cfg.Model, cfg.BaseURL, opts)
	case ProviderDeepSeek:
		if cfg.BaseURL != "" {
			return NewOpenAICompatible(apiKey, cfg.Model, cfg.BaseURL, opts), nil
		}
		return NewDeepSeek(apiKey, cfg.Model, opts), nil
	}
	if cfg.BaseURL != "" {
		return NewOpenAICompatible(apiKey, cfg.Model, cfg.BaseURL, opts), nil
	}
	return NewOpenAI(apiKey, cfg.Model, opts), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
