package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/taxon/internal/embedding"
	"github.com/JaimeStill/taxon/internal/llm"
	"github.com/JaimeStill/taxon/internal/similarity"
	"github.com/JaimeStill/taxon/pkg/database"
	"github.com/JaimeStill/taxon/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvTaxonEnv             = "TAXON_ENV"
	EnvTaxonShutdownTimeout = "TAXON_SHUTDOWN_TIMEOUT"
	EnvTaxonVersion         = "TAXON_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "TAXON_DB_HOST",
	Port:            "TAXON_DB_PORT",
	Name:            "TAXON_DB_NAME",
	User:            "TAXON_DB_USER",
	Password:        "TAXON_DB_PASSWORD",
	SSLMode:         "TAXON_DB_SSL_MODE",
	MaxOpenConns:    "TAXON_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "TAXON_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "TAXON_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "TAXON_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "TAXON_STORAGE_CONTAINER_NAME",
	ConnectionString: "TAXON_STORAGE_CONNECTION_STRING",
	MaxListSize:      "TAXON_STORAGE_MAX_LIST_SIZE",
}

// Vendor API keys use the vendors' own conventional variable names so
// existing shell profiles and CI secrets work unchanged.
var llmEnv = &llm.Env{
	Provider:        "TAXON_LLM_PROVIDER",
	Timeout:         "TAXON_LLM_TIMEOUT",
	AnthropicAPIKey: "ANTHROPIC_API_KEY",
	AnthropicModel:  "TAXON_LLM_ANTHROPIC_MODEL",
	OpenAIAPIKey:    "OPENAI_API_KEY",
	OpenAIModel:     "TAXON_LLM_OPENAI_MODEL",
	OpenAIBaseURL:   "TAXON_LLM_OPENAI_BASE_URL",
	GeminiAPIKey:    "GEMINI_API_KEY",
	GeminiModel:     "TAXON_LLM_GEMINI_MODEL",
	MaxAttempts:     "TAXON_LLM_MAX_ATTEMPTS",
}

var embeddingEnv = &embedding.Env{
	Provider:   "TAXON_EMBEDDING_PROVIDER",
	Model:      "TAXON_EMBEDDING_MODEL",
	Dimension:  "TAXON_EMBEDDING_DIMENSION",
	OllamaHost: "TAXON_EMBEDDING_OLLAMA_HOST",
	APIKey:     "TAXON_EMBEDDING_API_KEY",
}

var similarityEnv = &similarity.Env{
	Path:     "TAXON_SIMILARITY_PATH",
	Compress: "TAXON_SIMILARITY_COMPRESS",
}

// Config is the root configuration for the Taxon service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	LLM             llm.Config        `toml:"llm"`
	Embedding       embedding.Config  `toml:"embedding"`
	Similarity      similarity.Config `toml:"similarity"`
	Pipeline        PipelineConfig    `toml:"pipeline"`
	API             APIConfig         `toml:"api"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the TAXON_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvTaxonEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.LLM.Merge(&overlay.LLM)
	c.Embedding.Merge(&overlay.Embedding)
	c.Similarity.Merge(&overlay.Similarity)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.LLM.Finalize(llmEnv); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Embedding.Finalize(embeddingEnv); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := c.Similarity.Finalize(similarityEnv); err != nil {
		return fmt.Errorf("similarity: %w", err)
	}
	if err := c.Pipeline.Finalize(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvTaxonShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvTaxonVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvTaxonEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
