package similarity

import (
	"fmt"
	"os"
)

// Config holds vector index storage parameters.
type Config struct {
	// Path is the directory for persisted vectors.
	Path string `toml:"path"`

	// Compress enables gzip compression of stored vectors.
	Compress bool `toml:"compress"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Path     string
	Compress string
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
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.Compress {
		c.Compress = true
	}
}

func (c *Config) loadDefaults() {
	if c.Path == "" {
		c.Path = "data/similarity"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Path != "" {
		if v := os.Getenv(env.Path); v != "" {
			c.Path = v
		}
	}
	if env.Compress != "" {
		if v := os.Getenv(env.Compress); v != "" {
			c.Compress = v == "true" || v == "1"
		}
	}
}

func (c *Config) validate() error {
	if c.Path == "" {
		return fmt.Errorf("path required")
	}
	return nil
}
