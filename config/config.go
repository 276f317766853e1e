package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"repolens/internal/domain"
	"repolens/internal/errs"
)

// Config holds all configuration for repolens.
type Config struct {
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Model       ModelConfig       `yaml:"model"`
	Local       LocalConfig       `yaml:"local"`
	GitHub      GitHubConfig      `yaml:"github"`
	AzureDevOps AzureDevOpsConfig `yaml:"azure_devops"`
	Cache       CacheConfig       `yaml:"cache"`
	Logging     LoggingConfig     `yaml:"logging"`
	Output      string            `yaml:"output"` // "human", "json", "yaml"
}

// AnalysisConfig holds the selection and dispatch ceilings.
type AnalysisConfig struct {
	MaxFiles         int      `yaml:"max_files"`
	MaxContentLength int      `yaml:"max_content_length"`
	MaxConcurrent    int      `yaml:"max_concurrent"`
	Extensions       []string `yaml:"extensions"`
	Focus            []string `yaml:"focus"`
	MaxDepth         int      `yaml:"max_depth"` // 0 = unlimited
	MaxFetch         int      `yaml:"max_fetch"`
}

// ModelConfig holds model-service configuration.
type ModelConfig struct {
	Provider    string        `yaml:"provider"` // "openai", "azure", "claude", "gemini", "deepseek", "ollama", "mock"
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"` // empty selects the provider's usual variable
	BaseURL     string        `yaml:"base_url"`
	APIVersion  string        `yaml:"api_version"` // Azure OpenAI only
	Deployment  string        `yaml:"deployment"`  // Azure OpenAI only
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type LocalConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

type GitHubConfig struct {
	BaseURL  string `yaml:"base_url"`
	TokenEnv string `yaml:"token_env"`
	Ref      string `yaml:"ref"`
}

type AzureDevOpsConfig struct {
	BaseURL      string `yaml:"base_url"`
	Organization string `yaml:"organization"`
	PATEnv       string `yaml:"pat_env"`
	APIVersion   string `yaml:"api_version"`
	Branch       string `yaml:"branch"`
}

// CacheConfig holds completion cache configuration.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Path       string        `yaml:"path"` // empty = memory only
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			MaxFiles:         15,
			MaxContentLength: 8000,
			MaxConcurrent:    3,
			Extensions:       domain.SupportedExtensions(),
			MaxDepth:         3,
			MaxFetch:         50,
		},
		Model: ModelConfig{
			Provider:    "openai",
			Model:       "gpt-4",
			APIVersion:  "2024-06-01",
			Temperature: 0.1,
			MaxTokens:   1500,
			Timeout:     60 * time.Second,
		},
		Local: LocalConfig{
			Includes: []string{"**/*"},
			Excludes: []string{"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/dist/**", "**/build/**", "**/__pycache__/**", "**/*.min.js"},
		},
		GitHub: GitHubConfig{
			BaseURL:  "https://api.github.com",
			TokenEnv: "GITHUB_TOKEN",
			Ref:      "main",
		},
		AzureDevOps: AzureDevOpsConfig{
			BaseURL:    "https://dev.azure.com",
			PATEnv:     "AZURE_DEVOPS_PAT",
			APIVersion: "7.0",
			Branch:     "main",
		},
		Cache: CacheConfig{
			Enabled:    false,
			MaxEntries: 500,
			TTL:        24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Output: "human",
	}
}

// Load loads configuration from a YAML file, then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.Validationf("config.Load", "%s: %v", path, err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for repolens.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "repolens.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".repolens", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overlays environment overrides. Unparseable or non-positive
// integers are ignored.
func (c *Config) ApplyEnv() {
	envInt("MAX_FILES_FOR_LLM_ANALYSIS", &c.Analysis.MaxFiles)
	envInt("MAX_CODE_LENGTH_FOR_LLM", &c.Analysis.MaxContentLength)
	envInt("MAX_CONCURRENT_LLM_REQUESTS", &c.Analysis.MaxConcurrent)

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.Model.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.Model.Model = v
	}
}

func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return
	}
	*dst = n
}

// Validate checks the ceilings consumed by the analysis pipeline.
func (c *Config) Validate() error {
	const op = "config.Validate"
	switch {
	case c.Analysis.MaxFiles <= 0:
		return errs.Validationf(op, "analysis.max_files must be positive, got %d", c.Analysis.MaxFiles)
	case c.Analysis.MaxContentLength <= 0:
		return errs.Validationf(op, "analysis.max_content_length must be positive, got %d", c.Analysis.MaxContentLength)
	case c.Analysis.MaxConcurrent <= 0:
		return errs.Validationf(op, "analysis.max_concurrent must be positive, got %d", c.Analysis.MaxConcurrent)
	case c.Analysis.MaxDepth < 0:
		return errs.Validationf(op, "analysis.max_depth must not be negative, got %d", c.Analysis.MaxDepth)
	case len(c.Analysis.Extensions) == 0:
		return errs.Validationf(op, "analysis.extensions must not be empty")
	}
	switch c.Output {
	case "human", "json", "yaml":
	default:
		return errs.Validationf(op, "output must be human, json or yaml, got %q", c.Output)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CacheDBPath returns the default path of the completion cache database.
func CacheDBPath(dir string) string {
	return filepath.Join(dir, ".repolens", "cache.db")
}

// EnsureDir ensures the .repolens directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".repolens"), 0755)
}
