package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config selects and configures the model provider shared by the rerank and
// condition-judgment stages.
type Config struct {
	// Provider selects the backend: "anthropic", "openai", "gemini", "mock".
	Provider string `toml:"provider"`

	// Timeout bounds a single generation including retries.
	Timeout string `toml:"timeout"`

	Anthropic AnthropicConfig `toml:"anthropic"`
	OpenAI    OpenAIConfig    `toml:"openai"`
	Gemini    GeminiConfig    `toml:"gemini"`
	Retry     RetryConfig     `toml:"retry"`
}

// AnthropicConfig holds Anthropic credentials and model selection.
type AnthropicConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// OpenAIConfig holds OpenAI credentials and model selection. BaseURL points
// at OpenAI-compatible gateways when set.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// GeminiConfig holds Gemini credentials and model selection.
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// RetryConfig tunes the retry decorator.
type RetryConfig struct {
	MaxAttempts int     `toml:"max_attempts"`
	InitialWait string  `toml:"initial_wait"`
	MaxWait     string  `toml:"max_wait"`
	Multiplier  float64 `toml:"multiplier"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider        string
	Timeout         string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	GeminiAPIKey    string
	GeminiModel     string
	MaxAttempts     string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// InitialWaitDuration returns InitialWait as a time.Duration.
func (c *RetryConfig) InitialWaitDuration() time.Duration {
	d, _ := time.ParseDuration(c.InitialWait)
	return d
}

// MaxWaitDuration returns MaxWait as a time.Duration.
func (c *RetryConfig) MaxWaitDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxWait)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.Anthropic.APIKey != "" {
		c.Anthropic.APIKey = overlay.Anthropic.APIKey
	}
	if overlay.Anthropic.Model != "" {
		c.Anthropic.Model = overlay.Anthropic.Model
	}
	if overlay.OpenAI.APIKey != "" {
		c.OpenAI.APIKey = overlay.OpenAI.APIKey
	}
	if overlay.OpenAI.Model != "" {
		c.OpenAI.Model = overlay.OpenAI.Model
	}
	if overlay.OpenAI.BaseURL != "" {
		c.OpenAI.BaseURL = overlay.OpenAI.BaseURL
	}
	if overlay.Gemini.APIKey != "" {
		c.Gemini.APIKey = overlay.Gemini.APIKey
	}
	if overlay.Gemini.Model != "" {
		c.Gemini.Model = overlay.Gemini.Model
	}
	if overlay.Retry.MaxAttempts != 0 {
		c.Retry.MaxAttempts = overlay.Retry.MaxAttempts
	}
	if overlay.Retry.InitialWait != "" {
		c.Retry.InitialWait = overlay.Retry.InitialWait
	}
	if overlay.Retry.MaxWait != "" {
		c.Retry.MaxWait = overlay.Retry.MaxWait
	}
	if overlay.Retry.Multiplier != 0 {
		c.Retry.Multiplier = overlay.Retry.Multiplier
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = "gemini"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-haiku"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-flash"
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialWait == "" {
		c.Retry.InitialWait = "1s"
	}
	if c.Retry.MaxWait == "" {
		c.Retry.MaxWait = "10s"
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = 2.0
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Provider != "" {
		if v := os.Getenv(env.Provider); v != "" {
			c.Provider = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.AnthropicAPIKey != "" {
		if v := os.Getenv(env.AnthropicAPIKey); v != "" {
			c.Anthropic.APIKey = v
		}
	}
	if env.AnthropicModel != "" {
		if v := os.Getenv(env.AnthropicModel); v != "" {
			c.Anthropic.Model = v
		}
	}
	if env.OpenAIAPIKey != "" {
		if v := os.Getenv(env.OpenAIAPIKey); v != "" {
			c.OpenAI.APIKey = v
		}
	}
	if env.OpenAIModel != "" {
		if v := os.Getenv(env.OpenAIModel); v != "" {
			c.OpenAI.Model = v
		}
	}
	if env.OpenAIBaseURL != "" {
		if v := os.Getenv(env.OpenAIBaseURL); v != "" {
			c.OpenAI.BaseURL = v
		}
	}
	if env.GeminiAPIKey != "" {
		if v := os.Getenv(env.GeminiAPIKey); v != "" {
			c.Gemini.APIKey = v
		}
	}
	if env.GeminiModel != "" {
		if v := os.Getenv(env.GeminiModel); v != "" {
			c.Gemini.Model = v
		}
	}
	if env.MaxAttempts != "" {
		if v := os.Getenv(env.MaxAttempts); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Retry.MaxAttempts = n
			}
		}
	}
}

func (c *Config) validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("anthropic api_key required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai api_key required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("gemini api_key required for the gemini provider")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown provider: %q", c.Provider)
	}

	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Retry.InitialWait); err != nil {
		return fmt.Errorf("invalid retry initial_wait: %w", err)
	}
	if _, err := time.ParseDuration(c.Retry.MaxWait); err != nil {
		return fmt.Errorf("invalid retry max_wait: %w", err)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be at least 1")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be at least 1")
	}
	return nil
}
