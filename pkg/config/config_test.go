package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "llm:\n  model: test-model\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test-model", cfg.LLM.Model)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingModel)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, float64(0), cfg.LLM.Temperature)
	assert.Equal(t, "chunks", cfg.Database.TableName)
	assert.Equal(t, 1536, cfg.Database.VectorDim)
	assert.Equal(t, 1000, cfg.Processor.ChunkSize)
	assert.Equal(t, 200, cfg.Processor.ChunkOverlap)
	assert.Equal(t, 5, cfg.Ingest.FetchRetries)
	assert.Equal(t, 5, cfg.Ingest.FetchRetryWait)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
}

func TestLoadConfigReadsYAML(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	path := writeConfig(t, `
server:
  addr: ":9999"
llm:
  base_url: "https://llm.example.com/v1"
  model: "mixtral"
  max_tokens: 4096
  temperature: 0.3
database:
  url: "postgres://localhost/docchat"
  vector_dim: 768
processor:
  chunk_size: 500
  chunk_overlap: 50
retrieval:
  top_k: 8
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "https://llm.example.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, "postgres://localhost/docchat", cfg.Database.URL)
	assert.Equal(t, 768, cfg.Database.VectorDim)
	assert.Equal(t, 500, cfg.Processor.ChunkSize)
	assert.Equal(t, 50, cfg.Processor.ChunkOverlap)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
}

func TestLoadConfigMergesEnvironment(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "https://env.example.com/v1")
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("DATABASE_URL", "postgres://env-host/docchat")

	path := writeConfig(t, "llm:\n  base_url: \"https://file.example.com\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/v1", cfg.LLM.BaseURL, "environment wins over file")
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, "postgres://env-host/docchat", cfg.Database.URL)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfig(t, "llm: [not a map")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidateDefaultsPass(t *testing.T) {
	cfg, err := getDefaultConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.Validate())
}

func TestValidateCatchesBadValues(t *testing.T) {
	cfg, err := getDefaultConfig()
	require.NoError(t, err)

	cfg.LLM.Temperature = 3.0
	cfg.LLM.MaxTokens = 0
	cfg.Processor.ChunkOverlap = cfg.Processor.ChunkSize

	errs := cfg.Validate()
	require.Len(t, errs, 3)

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "llm.temperature")
	assert.Contains(t, fields, "llm.max_tokens")
	assert.Contains(t, fields, "processor.chunk_overlap")
}
