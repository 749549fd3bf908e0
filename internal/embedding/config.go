package embedding

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds embedding backend parameters.
type Config struct {
	// Provider selects the backend: "ollama" or "openai".
	Provider string `toml:"provider"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// Dimension is the vector dimension the model produces. Vectors of any
	// other size are rejected rather than silently indexed.
	Dimension int `toml:"dimension"`

	// OllamaHost is the Ollama server URL.
	OllamaHost string `toml:"ollama_host"`

	// APIKey authenticates the openai provider.
	APIKey string `toml:"api_key"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider   string
	Model      string
	Dimension  string
	OllamaHost string
	APIKey     string
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
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Dimension != 0 {
		c.Dimension = overlay.Dimension
	}
	if overlay.OllamaHost != "" {
		c.OllamaHost = overlay.OllamaHost
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = "ollama"
	}
	if c.Model == "" {
		c.Model = "all-minilm"
	}
	if c.Dimension == 0 {
		c.Dimension = 384
	}
	if c.OllamaHost == "" {
		c.OllamaHost = "http://localhost:11434"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Provider != "" {
		if v := os.Getenv(env.Provider); v != "" {
			c.Provider = v
		}
	}
	if env.Model != "" {
		if v := os.Getenv(env.Model); v != "" {
			c.Model = v
		}
	}
	if env.Dimension != "" {
		if v := os.Getenv(env.Dimension); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Dimension = n
			}
		}
	}
	if env.OllamaHost != "" {
		if v := os.Getenv(env.OllamaHost); v != "" {
			c.OllamaHost = v
		}
	}
	if env.APIKey != "" {
		if v := os.Getenv(env.APIKey); v != "" {
			c.APIKey = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Provider {
	case "ollama":
	case "openai":
		if c.APIKey == "" {
			return fmt.Errorf("api_key required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown provider: %q", c.Provider)
	}

	if c.Dimension < 1 {
		return fmt.Errorf("dimension must be positive")
	}
	return nil
}
