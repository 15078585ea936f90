package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	"github.com/tracepaper/core/internal/config"
)

// openaiEmbedder calls the OpenAI embeddings API through the official client.
type openaiEmbedder struct {
	client openaiclient.Client
	model  string
}

func newOpenAIEmbedder(provider config.ProviderConfig) *openaiEmbedder {
	model := strings.TrimSpace(provider.Model)
	if model == "" {
		model = "text-embedding-3-small"
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(strings.TrimSpace(provider.APIKey)),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeOpenAIBaseURL(provider.BaseURL); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}

	return &openaiEmbedder{
		client: openaiclient.NewClient(opts...),
		model:  model,
	}
}

func (e *openaiEmbedder) Model() string { return e.model }

func (e *openaiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openaiclient.EmbeddingNewParams{
		Input: openaiclient.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openaiclient.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(vectors) {
			return nil, errors.New("embedding index out of range")
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		vectors[idx] = vec
	}
	return vectors, nil
}
