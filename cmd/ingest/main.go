// Command ingest populates the knowledge base offline: it loads manual
// pages (HTML, PDF or plain text), splits them into overlapping windows,
// embeds each window and stores the chunks. The chat server only ever
// reads from these tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"beifahrer/internal/ai"
	"beifahrer/internal/config"
	"beifahrer/internal/model"
	"beifahrer/internal/pkg/pdfextract"
	mysqlClient "beifahrer/internal/platform/mysql"
	"beifahrer/internal/rag"
	"beifahrer/internal/repository"
)

func main() {
	dir := flag.String("dir", "", "ingest every file in this directory")
	flag.Parse()

	files := flag.Args()
	if (*dir == "") == (len(files) == 0) {
		log.Fatal("provide either -dir or a list of file paths, not both")
	}

	if *dir != "" {
		entries, err := os.ReadDir(*dir)
		if err != nil {
			log.Fatalf("read directory failed: %v", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				files = append(files, filepath.Join(*dir, entry.Name()))
			}
		}
	}
	if len(files) == 0 {
		log.Fatal("nothing to ingest")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	ctx := context.Background()
	db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("connect mysql failed: %v", err)
	}
	if err := db.AutoMigrate(&model.KnowledgeDocument{}, &model.Chunk{}); err != nil {
		log.Fatalf("auto migrate tables failed: %v", err)
	}

	embCfg := ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	}
	ingestor := rag.NewIngestor(
		ai.NewClient(),
		embCfg,
		repository.NewDocumentRepository(db),
		repository.NewChunkRepository(db),
		cfg.RAG.ChunkSize,
		cfg.RAG.ChunkOverlap,
	)

	for _, path := range files {
		log.Printf("ingesting %s", path)
		text, err := loadFile(path)
		if err != nil {
			log.Fatalf("load %s failed: %v", path, err)
		}
		result, err := ingestor.Ingest(ctx, filepath.Base(path), text)
		if err != nil {
			log.Fatalf("ingest %s failed: %v", path, err)
		}
		log.Printf("stored document %d with %d chunks", result.Document.ID, result.ChunkCount)
	}
	log.Printf("done, ingested %d files", len(files))
}

func loadFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		return rag.StripHTML(f)
	case ".pdf":
		return pdfextract.ExtractTextFromFile(path)
	case ".txt", ".md":
		b, err := os.ReadFile(path)
		return string(b), err
	default:
		return "", fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}
