package rag

import (
	"context"
	"fmt"
	"strings"

	"beifahrer/internal/ai"
)

// FallbackContext is returned when the knowledge base yields no results.
// It is grounding content, not an error.
const FallbackContext = "Keine relevanten Informationen gefunden."

const defaultTopK = 3

// EmbeddingClient embeds a query with the same model used at ingestion time.
// Mixing embedding models degrades retrieval silently, so the retriever and
// the ingestor are always configured from the same config section.
type EmbeddingClient interface {
	Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error)
}

// Retriever turns a user query into a formatted context block for the
// response generator.
type Retriever struct {
	llm    EmbeddingClient
	embCfg ai.EmbeddingConfig
	index  *Index
	topK   int
}

func NewRetriever(llm EmbeddingClient, embCfg ai.EmbeddingConfig, index *Index, topK int) *Retriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Retriever{
		llm:    llm,
		embCfg: embCfg,
		index:  index,
		topK:   topK,
	}
}

// RetrieveContext embeds the query, searches the index and formats the top-k
// chunks as numbered blocks. Low-similarity chunks are kept when fewer than
// k better ones exist; there is no score threshold.
func (r *Retriever) RetrieveContext(ctx context.Context, query string) (string, error) {
	queryVec, err := r.llm.Embed(ctx, r.embCfg, query)
	if err != nil {
		return "", fmt.Errorf("embed query failed: %w", err)
	}

	results, err := r.index.Search(queryVec, r.topK)
	if err != nil {
		return "", fmt.Errorf("search index failed: %w", err)
	}
	if len(results) == 0 {
		return FallbackContext, nil
	}

	parts := make([]string, len(results))
	for i, res := range results {
		parts[i] = fmt.Sprintf("[Dokument %d]\n%s", i+1, res.Chunk.Content)
	}
	return strings.Join(parts, "\n\n"), nil
}
