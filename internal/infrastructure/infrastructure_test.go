package infrastructure_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/taxon/internal/config"
	"github.com/JaimeStill/taxon/internal/embedding"
	"github.com/JaimeStill/taxon/internal/infrastructure"
	"github.com/JaimeStill/taxon/internal/llm"
	"github.com/JaimeStill/taxon/internal/similarity"
	"github.com/JaimeStill/taxon/pkg/database"
	"github.com/JaimeStill/taxon/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=taxonstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/taxonstore;"

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
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
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Database == nil {
		t.Error("Database is nil")
	}
	if infra.Storage == nil {
		t.Error("Storage is nil")
	}
	if infra.Models == nil {
		t.Error("Models is nil")
	}
	if infra.Embedder == nil {
		t.Error("Embedder is nil")
	}
	if infra.Similarity == nil {
		t.Error("Similarity is nil")
	}
}

func TestNewDatabaseConnection(t *testing.T) {
	infra, err := infrastructure.New(validConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conn := infra.Database.Connection()
	if conn == nil {
		t.Fatal("Database.Connection() returned nil")
	}
	conn.Close()
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.ConnectionString = "not-a-connection-string"

	_, err := infrastructure.New(cfg)
	if err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}

func TestNewCreatesSimilarityIndex(t *testing.T) {
	cfg := validConfig(t)

	if _, err := infrastructure.New(cfg); err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := os.Stat(cfg.Similarity.Path); err != nil {
		t.Errorf("similarity index directory not created: %v", err)
	}
}
