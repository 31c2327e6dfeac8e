package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"sop-assistant/internal/logger"
	"sop-assistant/internal/telemetry"
	"sop-assistant/services"
)

const (
	TaskIngestDocuments = "index:ingest"
)

type IngestPayload struct {
	RequestedBy string `json:"requested_by"`
}

// NewIngestTask creates a task that rebuilds the vector index from the
// configured PDF directory. Queued as critical: queries degrade while the
// index is stale.
func NewIngestTask(requestedBy string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{RequestedBy: requestedBy})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocuments,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// TaskProcessor runs queued ingestion jobs.
type TaskProcessor struct {
	ingestion *services.IngestionService
	metrics   *telemetry.Metrics
}

func NewTaskProcessor(ingestion *services.IngestionService, metrics *telemetry.Metrics) *TaskProcessor {
	return &TaskProcessor{ingestion: ingestion, metrics: metrics}
}

func (p *TaskProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing ingest task", "requested_by", payload.RequestedBy)

	start := time.Now()
	stats, err := p.ingestion.Ingest(ctx)
	if err != nil {
		if errors.Is(err, services.ErrNoDocuments) {
			// Retrying cannot conjure documents into the directory.
			logger.Warn("Ingest task found no documents")
			return fmt.Errorf("no documents: %w", asynq.SkipRetry)
		}
		return err // will retry
	}

	if p.metrics != nil {
		p.metrics.IngestDuration.Record(ctx, time.Since(start).Seconds())
		p.metrics.ChunksIndexed.Add(ctx, int64(stats.Chunks))
	}
	logger.Info("Ingest task completed",
		"documents", stats.Documents,
		"pages", stats.Pages,
		"chunks", stats.Chunks,
	)
	return nil
}
