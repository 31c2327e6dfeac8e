package services

import (
	"context"
	"time"

	"sop-assistant/internal/config"
	"sop-assistant/internal/logger"
	"sop-assistant/internal/vectorstore"
	"sop-assistant/models"
)

// Embedder maps text to fixed-dimension vectors. Deterministic for a fixed
// model identifier; the identifier is recorded with the index so queries are
// embedded compatibly.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// IngestionService rebuilds the vector index from a directory of source
// documents. Each run is all-or-nothing: no partial index is ever written.
// It is a one-shot batch job and must not run concurrently with itself
// against the same storage path.
type IngestionService struct {
	cfg      *config.Config
	loader   DocumentLoader
	chunker  *Chunker
	embedder Embedder
}

func NewIngestionService(cfg *config.Config, embedder Embedder) *IngestionService {
	return &IngestionService{
		cfg:      cfg,
		loader:   NewPDFLoader(),
		chunker:  NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize),
		embedder: embedder,
	}
}

// NewIngestionServiceWithLoader allows substituting the document loader.
func NewIngestionServiceWithLoader(cfg *config.Config, embedder Embedder, loader DocumentLoader) *IngestionService {
	svc := NewIngestionService(cfg, embedder)
	svc.loader = loader
	return svc
}

// Ingest discovers documents, chunks and embeds them, builds a fresh index
// and persists it to the configured path, replacing any prior index.
func (s *IngestionService) Ingest(ctx context.Context) (*models.IngestStats, error) {
	start := time.Now()

	paths, err := s.loader.Discover(s.cfg.PDFDirectory)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoDocuments
	}
	logger.Info("Documents discovered", "count", len(paths), "directory", s.cfg.PDFDirectory)

	var chunks []models.DocumentChunk
	pageCount := 0
	for _, path := range paths {
		pages, err := s.loader.LoadPages(path)
		if err != nil {
			return nil, err
		}
		pageCount += len(pages)
		for _, page := range pages {
			chunks = append(chunks, s.chunker.ChunkPage(page.Text, page.Source, page.Page)...)
		}
	}
	if len(chunks) == 0 {
		return nil, ErrNoDocuments
	}
	logger.Info("Chunks created", "pages", pageCount, "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, &EmbeddingError{Op: "embed_batch", Err: err}
	}

	store, err := vectorstore.Build(s.embedder.Model(), vectors, chunks)
	if err != nil {
		return nil, err
	}
	if err := store.Save(s.cfg.VectorstorePath); err != nil {
		return nil, &PersistenceError{Op: "save", Err: err}
	}

	stats := &models.IngestStats{
		Documents: len(paths),
		Pages:     pageCount,
		Chunks:    len(chunks),
	}
	logger.Info("Ingestion completed",
		"documents", stats.Documents,
		"pages", stats.Pages,
		"chunks", stats.Chunks,
		"path", s.cfg.VectorstorePath,
		"duration", time.Since(start).String(),
	)
	return stats, nil
}
