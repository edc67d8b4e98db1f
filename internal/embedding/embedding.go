// Package embedding turns text into vectors for similarity search. The
// default provider talks to a local Ollama instance; an OpenAI-compatible
// provider covers hosted APIs. Either can be wrapped with a Redis cache.
package embedding

import "context"

// Provider generates vector embeddings from text.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Config holds embedding provider configuration.
type Config struct {
	Provider  string `json:"provider"` // "ollama" or "api"
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	Dimension int    `json:"dimension"`
}

// withDefaults fills unset fields for the local provider.
func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "nomic-embed-text"
	}
	if c.Dimension == 0 {
		c.Dimension = 768
	}
	return c
}

// New builds the provider named by cfg.Provider, defaulting to Ollama.
func New(cfg Config) Provider {
	if cfg.Provider == "api" {
		return NewAPIProvider(cfg)
	}
	return NewOllamaProvider(cfg)
}
