package vectorstore

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder builds the embedding client the store queries through. The
// store itself only sees the embeddings.Embedder interface, so tests can
// substitute a deterministic fake.
func NewEmbedder(provider, model, apiKey, serverURL string) (embeddings.Embedder, error) {
	switch provider {
	case "openai":
		opts := []openai.Option{openai.WithEmbeddingModel(model)}
		if apiKey != "" {
			opts = append(opts, openai.WithToken(apiKey))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("openai embedding client: %w", err)
		}
		return embeddings.NewEmbedder(client)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(model)}
		if serverURL != "" {
			opts = append(opts, ollama.WithServerURL(serverURL))
		}
		client, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("ollama embedding client: %w", err)
		}
		return embeddings.NewEmbedder(client)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}
