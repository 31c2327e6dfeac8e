package routes

import (
	"errors"
	"net/http"

	"sop-assistant/internal/config"
	"sop-assistant/internal/queue"
	"sop-assistant/internal/vectorstore"
	"sop-assistant/middleware"
	"sop-assistant/services"
	"sop-assistant/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// SetupIngestRoutes exposes index management: enqueue a rebuild, reload the
// served index from disk, and inspect index status. The rebuild itself runs
// in the worker process; the API server picks up the result via /index/reload.
func SetupIngestRoutes(router *gin.Engine, cfg *config.Config, retriever *services.Retriever, queueClient *asynq.Client) {
	router.POST("/ingest", func(c *gin.Context) {
		task, err := queue.NewIngestTask(middleware.GetRequestID(c))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create ingest task", err.Error())
			return
		}

		info, err := queueClient.Enqueue(task)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue ingest task", err.Error())
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"task_id": info.ID,
			"queue":   info.Queue,
			"message": "Ingestion queued - reload the index once the task completes",
		})
	})

	router.POST("/index/reload", func(c *gin.Context) {
		store, err := vectorstore.Load(cfg.VectorstorePath, cfg.EmbeddingsModel)
		if err != nil {
			if errors.Is(err, vectorstore.ErrNotFound) {
				utils.RespondWithNotFound(c, "No index found at configured path")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load index", err.Error())
			return
		}

		retriever.Reload(store)
		c.JSON(http.StatusOK, gin.H{
			"chunks": store.Len(),
			"model":  store.Model(),
		})
	})

	router.GET("/index/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"chunks":           retriever.IndexSize(),
			"embeddings_model": cfg.EmbeddingsModel,
			"vectorstore_path": cfg.VectorstorePath,
		})
	})
}
