package main

import (
	"context"
	"log"
	"time"

	"sop-assistant/internal/ai"
	"sop-assistant/internal/config"
	"sop-assistant/internal/logger"
	"sop-assistant/internal/queue"
	"sop-assistant/internal/telemetry"
	"sop-assistant/services"

	"github.com/go-co-op/gocron"
	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	// Embedding provider for index builds
	embedder, err := ai.NewGeminiEmbedder(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Failed to initialize metrics", "error", err)
	}

	ingestion := services.NewIngestionService(cfg, embedder)
	processor := queue.NewTaskProcessor(ingestion, metrics)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	// Scheduled reindexing: periodically enqueue the same ingest task the
	// API enqueues on demand, so both paths share one code path.
	if cfg.ReindexCron != "" {
		client := asynq.NewClient(redisOpt)
		defer client.Close()

		scheduler := gocron.NewScheduler(time.UTC)
		_, err := scheduler.Cron(cfg.ReindexCron).Do(func() {
			task, err := queue.NewIngestTask("scheduler")
			if err != nil {
				logger.Error("Failed to create scheduled ingest task", "error", err)
				return
			}
			if _, err := client.Enqueue(task); err != nil {
				logger.Error("Failed to enqueue scheduled ingest task", "error", err)
			}
		})
		if err != nil {
			log.Fatal("Invalid REINDEX_CRON expression:", err)
		}
		scheduler.StartAsync()
		logger.Info("Scheduled reindexing enabled", "cron", cfg.ReindexCron)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// Ingestion rebuilds the whole index; running two at once
			// against the same storage path is unsupported.
			Concurrency: 1,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocuments, processor.ProcessIngest)

	logger.Info("Starting worker", "redis", cfg.RedisURL)
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
