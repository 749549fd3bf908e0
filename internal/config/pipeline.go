package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/taxon/internal/conditions"
	"github.com/JaimeStill/taxon/internal/rerank"
	"github.com/JaimeStill/taxon/internal/rules"
)

const (
	EnvPipelineRerankMaxTokens   = "TAXON_PIPELINE_RERANK_MAX_TOKENS"
	EnvPipelineJudgmentMaxTokens = "TAXON_PIPELINE_JUDGMENT_MAX_TOKENS"
	EnvPipelineLeafTimeout       = "TAXON_PIPELINE_LEAF_TIMEOUT"
	EnvPipelineLeafConcurrency   = "TAXON_PIPELINE_LEAF_CONCURRENCY"
)

// PipelineConfig tunes the classification pipeline stages.
type PipelineConfig struct {
	// RerankMaxTokens is the response budget for rerank calls.
	RerankMaxTokens int `toml:"rerank_max_tokens"`

	// JudgmentMaxTokens is the response budget for condition judgments.
	JudgmentMaxTokens int `toml:"judgment_max_tokens"`

	// LeafTimeout bounds each individual condition judgment.
	LeafTimeout string `toml:"leaf_timeout"`

	// LeafConcurrency is the number of sibling conditions judged at once.
	LeafConcurrency int `toml:"leaf_concurrency"`
}

// LeafTimeoutDuration returns LeafTimeout as a time.Duration.
func (c *PipelineConfig) LeafTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.LeafTimeout)
	return d
}

// Rerank returns the rerank stage configuration.
func (c *PipelineConfig) Rerank() rerank.Config {
	cfg := rerank.DefaultConfig()
	cfg.MaxTokens = c.RerankMaxTokens
	return cfg
}

// Conditions returns the condition judgment configuration.
func (c *PipelineConfig) Conditions() conditions.Config {
	cfg := conditions.DefaultConfig()
	cfg.MaxTokens = c.JudgmentMaxTokens
	return cfg
}

// Rules returns the rule evaluator configuration.
func (c *PipelineConfig) Rules() rules.Config {
	return rules.Config{
		LeafTimeout: c.LeafTimeoutDuration(),
		Concurrency: c.LeafConcurrency,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.RerankMaxTokens != 0 {
		c.RerankMaxTokens = overlay.RerankMaxTokens
	}
	if overlay.JudgmentMaxTokens != 0 {
		c.JudgmentMaxTokens = overlay.JudgmentMaxTokens
	}
	if overlay.LeafTimeout != "" {
		c.LeafTimeout = overlay.LeafTimeout
	}
	if overlay.LeafConcurrency != 0 {
		c.LeafConcurrency = overlay.LeafConcurrency
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.RerankMaxTokens == 0 {
		c.RerankMaxTokens = rerank.DefaultConfig().MaxTokens
	}
	if c.JudgmentMaxTokens == 0 {
		c.JudgmentMaxTokens = conditions.DefaultConfig().MaxTokens
	}
	if c.LeafTimeout == "" {
		c.LeafTimeout = "30s"
	}
	if c.LeafConcurrency == 0 {
		c.LeafConcurrency = 4
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineRerankMaxTokens); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RerankMaxTokens = n
		}
	}
	if v := os.Getenv(EnvPipelineJudgmentMaxTokens); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.JudgmentMaxTokens = n
		}
	}
	if v := os.Getenv(EnvPipelineLeafTimeout); v != "" {
		c.LeafTimeout = v
	}
	if v := os.Getenv(EnvPipelineLeafConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LeafConcurrency = n
		}
	}
}

func (c *PipelineConfig) validate() error {
	if c.RerankMaxTokens < 1 {
		return fmt.Errorf("invalid rerank_max_tokens: %d", c.RerankMaxTokens)
	}
	if c.JudgmentMaxTokens < 1 {
		return fmt.Errorf("invalid judgment_max_tokens: %d", c.JudgmentMaxTokens)
	}
	if _, err := time.ParseDuration(c.LeafTimeout); err != nil {
		return fmt.Errorf("invalid leaf_timeout: %w", err)
	}
	if c.LeafConcurrency < 1 {
		return fmt.Errorf("invalid leaf_concurrency: %d", c.LeafConcurrency)
	}
	return nil
}
