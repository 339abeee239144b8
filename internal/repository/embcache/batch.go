package embcache

import (
	"context"
	"fmt"

	"github.com/meridian-data/searchbridge/internal/domain"
)

// BatchEmbed resolves each text from the cache and sends only the misses to
// the inner embedder in one batch. Token counts reflect misses only.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	embeddings := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		key := c.cacheKey(text)
		if vec, ok := c.lookup(ctx, key); ok {
			c.count("hit")
			embeddings[i] = vec
			continue
		}
		c.count("miss")
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
	}

	batch, ok := c.inner.(domain.BatchEmbedder)
	if !ok {
		return c.batchViaSingle(ctx, embeddings, missIdx, missTexts)
	}

	res, err := batch.BatchEmbed(ctx, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	if len(res.Embeddings) != len(missTexts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: got %d vectors for %d texts", len(res.Embeddings), len(missTexts))
	}

	for j, i := range missIdx {
		embeddings[i] = res.Embeddings[j]
		c.save(ctx, c.cacheKey(missTexts[j]), res.Embeddings[j])
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// batchViaSingle covers inner embedders without a batch endpoint.
func (c *CachedEmbedder) batchViaSingle(
	ctx context.Context, embeddings [][]float32, missIdx []int, missTexts []string,
) (domain.BatchEmbeddingResult, error) {
	var promptTokens, totalTokens int
	for j, i := range missIdx {
		res, err := c.inner.Embed(ctx, missTexts[j])
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = res.Embedding
		c.save(ctx, c.cacheKey(missTexts[j]), res.Embedding)
		promptTokens += res.PromptTokens
		totalTokens += res.TotalTokens
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}
