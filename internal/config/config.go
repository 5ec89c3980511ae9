// Package config loads runtime settings from an optional config file,
// environment variables, and a .env file, with defaults for everything
// except API credentials.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	// LLM provider selection and credentials.
	Provider        string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OllamaHost      string
	OllamaModel     string

	// Embedding backend for the vector store.
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingServerURL string

	// Ingestion chunking parameters.
	ChunkSize    int
	ChunkOverlap int

	// Search and conversation bounds.
	MaxResults    int
	MaxHistory    int
	MaxToolRounds int

	// Storage and serving.
	DBPath     string
	ListenAddr string
	DocsDir    string
}

// Load reads configuration in precedence order: defaults, then an optional
// lectern.yaml (working directory or ~/.config/lectern), then LECTERN_*
// environment variables. A .env file in the working directory is loaded
// first so API keys can live there during development. The returned viper
// instance also feeds NewLogger.
func Load() (*Config, *viper.Viper, error) {
	// Missing .env is fine; it only exists in development setups.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("lectern")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/lectern")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LECTERN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials follow the conventional variable names rather than the
	// LECTERN_ prefix.
	_ = v.BindEnv("llm.anthropic_api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("llm.openai_api_key", "OPENAI_API_KEY")

	cfg := &Config{
		Provider:        v.GetString("llm.provider"),
		AnthropicAPIKey: v.GetString("llm.anthropic_api_key"),
		AnthropicModel:  v.GetString("llm.anthropic_model"),
		OpenAIAPIKey:    v.GetString("llm.openai_api_key"),
		OpenAIModel:     v.GetString("llm.openai_model"),
		OllamaHost:      v.GetString("llm.ollama_host"),
		OllamaModel:     v.GetString("llm.ollama_model"),

		EmbeddingProvider:  v.GetString("embedding.provider"),
		EmbeddingModel:     v.GetString("embedding.model"),
		EmbeddingServerURL: v.GetString("embedding.server_url"),

		ChunkSize:    v.GetInt("chunking.size"),
		ChunkOverlap: v.GetInt("chunking.overlap"),

		MaxResults:    v.GetInt("search.max_results"),
		MaxHistory:    v.GetInt("session.max_history"),
		MaxToolRounds: v.GetInt("generator.max_rounds"),

		DBPath:     v.GetString("storage.path"),
		ListenAddr: v.GetString("server.addr"),
		DocsDir:    v.GetString("docs.dir"),
	}

	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.anthropic_model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.openai_model", "")
	v.SetDefault("llm.ollama_host", "")
	v.SetDefault("llm.ollama_model", "")

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.server_url", "")

	v.SetDefault("chunking.size", 800)
	v.SetDefault("chunking.overlap", 100)

	v.SetDefault("search.max_results", 5)
	v.SetDefault("session.max_history", 2)
	v.SetDefault("generator.max_rounds", 2)

	v.SetDefault("storage.path", "./lectern.db")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("docs.dir", "./docs")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validate rejects configurations the lower layers assume away. A
// non-positive search cap would silently return no results on every query,
// so it is refused here rather than guarded per search.
func (c *Config) validate() error {
	switch c.Provider {
	case "anthropic", "openai", "ollama":
	default:
		return fmt.Errorf("unsupported llm provider %q (want anthropic, openai, or ollama)", c.Provider)
	}
	switch c.EmbeddingProvider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported embedding provider %q (want openai or ollama)", c.EmbeddingProvider)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.MaxResults)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunking.overlap must be in [0, chunking.size), got %d", c.ChunkOverlap)
	}
	return nil
}
