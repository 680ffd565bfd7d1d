// Package rag implements retrieval over the pre-embedded knowledge base:
// the chunk index, the context retriever, and the offline ingestion pipeline.
package rag

import (
	"math"
	"sort"

	"beifahrer/internal/model"
)

// ChunkSource supplies the embedded chunks to rank. Backed by the chunk
// repository in production; tests use in-memory fixtures.
type ChunkSource interface {
	ListAll() ([]model.Chunk, error)
}

type ScoredChunk struct {
	Chunk model.Chunk
	Score float32
}

// Index ranks knowledge-base chunks by cosine similarity against a query
// vector. Chunks are read fresh from the source on every search; the store
// is only ever written by the offline ingestion pipeline.
type Index struct {
	source ChunkSource
}

func NewIndex(source ChunkSource) *Index {
	return &Index{source: source}
}

// Search returns at most k chunks in descending similarity order. An empty
// store yields an empty result, never an error.
func (ix *Index) Search(queryVec []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 || len(queryVec) == 0 {
		return nil, nil
	}

	chunks, err := ix.source.ListAll()
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	scored := make([]ScoredChunk, len(chunks))
	for i := range chunks {
		scored[i] = ScoredChunk{
			Chunk: chunks[i],
			Score: cosineSimilarity(queryVec, chunks[i].EmbeddingVector()),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
