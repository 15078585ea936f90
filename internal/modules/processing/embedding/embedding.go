// Package embedding turns text into vectors through an external model
// capability, either the OpenAI API or any server speaking the
// /v1/embeddings dialect.
package embedding

import (
	"context"
	"strings"

	"github.com/tracepaper/core/internal/config"
)

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// New selects the embedder implementation for the configured provider.
func New(provider config.ProviderConfig) Embedder {
	if normalizeProviderType(provider.Provider) == "openai" {
		return newOpenAIEmbedder(provider)
	}
	return newHTTPEmbedder(provider)
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}
