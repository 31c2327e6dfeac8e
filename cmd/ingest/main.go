package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"sop-assistant/internal/ai"
	"sop-assistant/internal/config"
	"sop-assistant/internal/logger"
	"sop-assistant/services"
)

// One-shot ingestion: rebuild the vector index from the configured PDF
// directory and exit. The API server loads the result at startup.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	ctx := context.Background()
	embedder, err := ai.NewGeminiEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	ingestion := services.NewIngestionService(cfg, embedder)
	stats, err := ingestion.Ingest(ctx)
	if err != nil {
		if errors.Is(err, services.ErrNoDocuments) {
			log.Fatalf("No PDF documents found in %s", cfg.PDFDirectory)
		}
		log.Fatal("Ingestion failed:", err)
	}

	fmt.Fprintf(os.Stdout, "Indexed %d chunks from %d pages across %d documents into %s\n",
		stats.Chunks, stats.Pages, stats.Documents, cfg.VectorstorePath)
}
