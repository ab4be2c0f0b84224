package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

// EmbedTexts embeds each text and returns one vector per input, in order.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, errors.New("EmbedTexts: no texts")
	}

	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("EmbedTexts: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("EmbedTexts: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float64, len(resp.Data))
	for _, d := range resp.Data {
		if int(d.Index) < 0 || int(d.Index) >= len(vectors) {
			return nil, fmt.Errorf("EmbedTexts: embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
