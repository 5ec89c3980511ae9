package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the loader at empty working and home directories so only
// the test's own files and env vars are visible.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, v, err := Load()
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.AnthropicModel)
	assert.Equal(t, "openai", cfg.EmbeddingProvider)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.MaxResults)
	assert.Equal(t, 2, cfg.MaxHistory)
	assert.Equal(t, 2, cfg.MaxToolRounds)
	assert.Equal(t, "./lectern.db", cfg.DBPath)
	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, "./docs", cfg.DocsDir)

	assert.Equal(t, "info", v.GetString("logging.level"))
	assert.Equal(t, "json", v.GetString("logging.format"))
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	yaml := `
llm:
  provider: ollama
  ollama_model: llama3
search:
  max_results: 7
server:
  addr: ":9001"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lectern.yaml"), []byte(yaml), 0o644))

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, "llama3", cfg.OllamaModel)
	assert.Equal(t, 7, cfg.MaxResults)
	assert.Equal(t, ":9001", cfg.ListenAddr)
	assert.Equal(t, 800, cfg.ChunkSize, "unset keys keep their defaults")
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("LECTERN_SEARCH_MAX_RESULTS", "9")
	t.Setenv("LECTERN_LLM_PROVIDER", "openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-123")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.MaxResults)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "sk-test-123", cfg.AnthropicAPIKey, "credentials bind to their conventional names")
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := isolate(t)
	// godotenv never overrides variables already present in the environment.
	if _, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
		t.Setenv("OPENAI_API_KEY", "")
		os.Unsetenv("OPENAI_API_KEY")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=sk-from-dotenv\n"), 0o600))

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-dotenv", cfg.OpenAIAPIKey)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown llm provider", "llm:\n  provider: bard\n"},
		{"unknown embedding provider", "embedding:\n  provider: fasttext\n"},
		{"zero max results", "search:\n  max_results: 0\n"},
		{"negative chunk size", "chunking:\n  size: -1\n"},
		{"overlap at chunk size", "chunking:\n  size: 100\n  overlap: 100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "lectern.yaml"), []byte(tt.yaml), 0o644))

			_, _, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateBounds(t *testing.T) {
	base := Config{
		Provider:          "anthropic",
		EmbeddingProvider: "openai",
		ChunkSize:         800,
		ChunkOverlap:      100,
		MaxResults:        5,
	}
	assert.NoError(t, base.validate())

	c := base
	c.ChunkOverlap = 0
	assert.NoError(t, c.validate(), "zero overlap is allowed")

	c = base
	c.ChunkOverlap = -1
	assert.Error(t, c.validate())
}
