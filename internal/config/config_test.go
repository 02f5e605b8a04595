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

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "research1.pdf", cfg.Source)
	assert.Equal(t, "research_stuff", cfg.Collection)
	assert.Equal(t, 1000, cfg.Chunker.Size)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 8, cfg.Agent.MaxTurns)
	assert.Equal(t, "openai", cfg.LLM.Type)
	assert.Equal(t, "gpt-4o", cfg.LLM.OpenAI.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, ":5000", cfg.Server.Addr)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
source: paper.txt
chunker:
  size: 500
  overlap: 50
embedder:
  type: ollama
  ollama:
    model: mxbai-embed-large
llm:
  type: ollama
vector_store:
  type: qdrant
  qdrant:
    host: qdrant.internal
cache:
  redis_url: redis://localhost:6379/0
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "paper.txt", cfg.Source)
	assert.Equal(t, 500, cfg.Chunker.Size)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	assert.Equal(t, "mxbai-embed-large", cfg.Embedder.Ollama.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Embedder.Ollama.URL)
	assert.Equal(t, "llama3.2", cfg.LLM.Ollama.Model)
	assert.Equal(t, "qdrant.internal", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, 6334, cfg.VectorStore.Qdrant.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RAG_SOURCE", "/data/other.pdf")
	t.Setenv("RAG_ADDR", ":9090")
	t.Setenv("OLLAMA_HOST", "gpu-box:11434")
	t.Setenv("MY_KEY", "sk-123")

	path := writeConfig(t, `
llm:
  type: openai
  openai:
    api_key_env: MY_KEY
embedder:
  type: ollama
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/other.pdf", cfg.Source)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "http://gpu-box:11434", cfg.Embedder.Ollama.URL)
	assert.Equal(t, "sk-123", cfg.LLM.OpenAI.APIKey())
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "chunker: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"overlap not below size", func(c *AppConfig) { c.Chunker.Overlap = c.Chunker.Size }},
		{"negative overlap", func(c *AppConfig) { c.Chunker.Overlap = -1 }},
		{"unknown embedder", func(c *AppConfig) { c.Embedder.Type = "word2vec" }},
		{"unknown llm", func(c *AppConfig) { c.LLM.Type = "bard" }},
		{"unknown store", func(c *AppConfig) { c.VectorStore.Type = "lancedb" }},
		{"watch with persistent store", func(c *AppConfig) { c.Watch = true; c.VectorStore.Type = "sqlite" }},
		{"bad log format", func(c *AppConfig) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &AppConfig{}
			applyDefaults(cfg)
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
