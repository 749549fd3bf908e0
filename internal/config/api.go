package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/taxon/pkg/formatting"
	"github.com/JaimeStill/taxon/pkg/middleware"
	"github.com/JaimeStill/taxon/pkg/openapi"
	"github.com/JaimeStill/taxon/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "TAXON_CORS_ENABLED",
	Origins:          "TAXON_CORS_ORIGINS",
	AllowedMethods:   "TAXON_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "TAXON_CORS_ALLOWED_HEADERS",
	AllowCredentials: "TAXON_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "TAXON_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "TAXON_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "TAXON_PAGINATION_MAX_PAGE_SIZE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "TAXON_OPENAPI_TITLE",
	Description: "TAXON_OPENAPI_DESCRIPTION",
}

// APIConfig holds API routing, CORS, pagination, and spec metadata settings.
type APIConfig struct {
	BasePath    string                `toml:"base_path"`
	MaxBodySize string                `toml:"max_body_size"`
	CORS        middleware.CORSConfig `toml:"cors"`
	Pagination  pagination.Config     `toml:"pagination"`
	OpenAPI     openapi.Config        `toml:"openapi"`
}

// MaxBodySizeBytes returns the request body limit in bytes. Classification
// documents arrive inline in JSON bodies, so this bounds document size.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return 10 * 1024 * 1024 // 10MB fallback
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS, pagination, and OpenAPI configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "10MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("TAXON_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("TAXON_API_MAX_BODY_SIZE"); v != "" {
		c.MaxBodySize = v
	}
}
