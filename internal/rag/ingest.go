package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"beifahrer/internal/ai"
	"beifahrer/internal/model"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	embeddingBatchSize  = 10
)

var ErrEmptyDocument = errors.New("document has no extractable text")

type DocumentStore interface {
	Create(doc *model.KnowledgeDocument) error
	FindByName(name string) (*model.KnowledgeDocument, error)
	Delete(id uint) error
}

type ChunkStore interface {
	CreateBatch(chunks []model.Chunk) error
	DeleteByDocumentID(documentID uint) error
}

type BatchEmbeddingClient interface {
	EmbedBatch(ctx context.Context, cfg ai.EmbeddingConfig, texts []string) ([][]float32, error)
}

// Ingestor populates the knowledge base offline: split a document into
// overlapping windows, embed each window, persist document and chunks.
// Re-ingesting a document of the same name replaces its previous chunks.
type Ingestor struct {
	llm       BatchEmbeddingClient
	embCfg    ai.EmbeddingConfig
	docs      DocumentStore
	chunks    ChunkStore
	chunkSize int
	overlap   int
}

func NewIngestor(llm BatchEmbeddingClient, embCfg ai.EmbeddingConfig, docs DocumentStore, chunks ChunkStore, chunkSize, overlap int) *Ingestor {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = defaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 5
		}
	}
	return &Ingestor{
		llm:       llm,
		embCfg:    embCfg,
		docs:      docs,
		chunks:    chunks,
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

type IngestResult struct {
	Document   model.KnowledgeDocument `json:"document"`
	ChunkCount int                     `json:"chunk_count"`
}

// Ingest stores text as a new document with embedded chunks.
func (ing *Ingestor) Ingest(ctx context.Context, name, text string) (*IngestResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyDocument
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled"
	}

	windows := ChunkText(text, ing.chunkSize, ing.overlap)
	if len(windows) == 0 {
		return nil, ErrEmptyDocument
	}

	// Embed before touching the store, so a backend failure leaves no
	// half-ingested document behind. Batched; providers commonly cap array
	// input size.
	var embeddings [][]float32
	for i := 0; i < len(windows); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(windows) {
			end = len(windows)
		}
		batch, err := ing.llm.EmbedBatch(ctx, ing.embCfg, windows[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunk batch failed: %w", err)
		}
		embeddings = append(embeddings, batch...)
	}
	if len(embeddings) != len(windows) {
		return nil, fmt.Errorf("embedding count mismatch: %d windows, %d vectors", len(windows), len(embeddings))
	}

	// A document of the same name supersedes its previous ingestion.
	existing, err := ing.docs.FindByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := ing.chunks.DeleteByDocumentID(existing.ID); err != nil {
			return nil, err
		}
		if err := ing.docs.Delete(existing.ID); err != nil {
			return nil, err
		}
	}

	doc := &model.KnowledgeDocument{Name: name}
	if err := ing.docs.Create(doc); err != nil {
		return nil, err
	}

	chunks := make([]model.Chunk, len(windows))
	for i := range windows {
		chunks[i] = model.Chunk{
			DocumentID: doc.ID,
			Position:   i,
			Content:    windows[i],
		}
		chunks[i].SetEmbedding(embeddings[i])
	}
	if err := ing.chunks.CreateBatch(chunks); err != nil {
		return nil, err
	}

	return &IngestResult{
		Document:   *doc,
		ChunkCount: len(chunks),
	}, nil
}

// ChunkText splits text into rune windows of the given size with the given
// overlap. The overlap keeps passages that straddle a window boundary
// retrievable from either side.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}

	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
		i += size - overlap
	}
	return chunks
}

var whitespaceRun = regexp.MustCompile(`[ \t]*\n[ \t\n]*`)

// StripHTML extracts readable text from an HTML document, dropping script
// and style content and collapsing blank-line runs.
func StripHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html failed: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	text := doc.Text()
	text = whitespaceRun.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text), nil
}
