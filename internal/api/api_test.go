package api_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/taxon/internal/api"
	"github.com/JaimeStill/taxon/internal/config"
	"github.com/JaimeStill/taxon/internal/embedding"
	"github.com/JaimeStill/taxon/internal/infrastructure"
	"github.com/JaimeStill/taxon/internal/llm"
	"github.com/JaimeStill/taxon/internal/similarity"
	"github.com/JaimeStill/taxon/pkg/database"
	"github.com/JaimeStill/taxon/pkg/middleware"
	"github.com/JaimeStill/taxon/pkg/openapi"
	"github.com/JaimeStill/taxon/pkg/pagination"
	"github.com/JaimeStill/taxon/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=taxonstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/taxonstore;"

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "1m",
			WriteTimeout:    "15m",
			ShutdownTimeout: "30s",
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "taxon",
			User:            "taxon",
			Password:        "taxon",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			ContainerName:    "results",
			ConnectionString: azuriteConnString,
			MaxListSize:      50,
		},
		LLM: llm.Config{
			Provider: "mock",
			Timeout:  "30s",
		},
		Embedding: embedding.Config{
			Provider:   "ollama",
			Model:      "all-minilm",
			Dimension:  384,
			OllamaHost: "http://localhost:11434",
		},
		Similarity: similarity.Config{
			Path: filepath.Join(t.TempDir(), "similarity"),
		},
		Pipeline: config.PipelineConfig{
			RerankMaxTokens:   2048,
			JudgmentMaxTokens: 512,
			LeafTimeout:       "30s",
			LeafConcurrency:   4,
		},
		API: config.APIConfig{
			BasePath:    "/api",
			MaxBodySize: "10MB",
			CORS: middleware.CORSConfig{
				Enabled: false,
			},
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
			OpenAPI: openapi.Config{
				Title:       "Taxon API",
				Description: "Test spec",
			},
		},
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}
}

func setupInfra(t *testing.T) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(validConfig(t))
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Pagination.MaxPageSize != 100 {
		t.Errorf("pagination max page size: got %d, want 100", runtime.Pagination.MaxPageSize)
	}
	if runtime.Pipeline.LeafConcurrency != 4 {
		t.Errorf("pipeline leaf concurrency: got %d, want 4", runtime.Pipeline.LeafConcurrency)
	}
	if runtime.Logger == nil {
		t.Error("runtime logger is nil")
	}
	if runtime.Database == nil {
		t.Error("runtime database is nil")
	}
	if runtime.Storage == nil {
		t.Error("runtime storage is nil")
	}
	if runtime.Models == nil {
		t.Error("runtime model pool is nil")
	}
	if runtime.Similarity == nil {
		t.Error("runtime similarity ranker is nil")
	}
	if runtime.Lifecycle == nil {
		t.Error("runtime lifecycle is nil")
	}
}

func TestNewDomain(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t)
	runtime := api.NewRuntime(cfg, infra)

	domain, err := api.NewDomain(runtime)
	if err != nil {
		t.Fatalf("NewDomain() error = %v", err)
	}

	if domain.Catalog == nil {
		t.Error("catalog system is nil")
	}
	if domain.Decisions == nil {
		t.Error("decisions system is nil")
	}
}

func TestBuildSpec(t *testing.T) {
	cfg := validConfig(t)

	spec := api.BuildSpec(cfg)

	if spec.Info.Title != "Taxon API" {
		t.Errorf("title: got %s, want Taxon API", spec.Info.Title)
	}
	if spec.Info.Version != "0.1.0" {
		t.Errorf("version: got %s, want 0.1.0", spec.Info.Version)
	}
	if len(spec.Servers) != 1 || spec.Servers[0].URL != "/api" {
		t.Errorf("servers: got %+v, want single /api entry", spec.Servers)
	}

	for _, path := range []string{
		"/classsets",
		"/classsets/search",
		"/classsets/reindex",
		"/classsets/{id}",
		"/classsets/{id}/reindex",
		"/runs",
		"/runs/search",
		"/runs/models",
		"/runs/validate",
		"/runs/{id}",
		"/storage",
		"/storage/{key}",
		"/storage/download/{key}",
	} {
		if _, ok := spec.Paths[path]; !ok {
			t.Errorf("missing path %s", path)
		}
	}

	for _, schema := range []string{"Class", "Rule", "ClassSet", "Run", "RunDetail", "ClassificationResult"} {
		if _, ok := spec.Components.Schemas[schema]; !ok {
			t.Errorf("missing component schema %s", schema)
		}
	}
}

func TestBuildSpecMarshals(t *testing.T) {
	data, err := openapi.MarshalJSON(api.BuildSpec(validConfig(t)))
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("spec is not valid JSON: %v", err)
	}
	if decoded["openapi"] != "3.1.0" {
		t.Errorf("openapi version: got %v, want 3.1.0", decoded["openapi"])
	}
}
