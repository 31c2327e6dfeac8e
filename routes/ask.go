package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sop-assistant/internal/ai"
	"sop-assistant/internal/config"
	"sop-assistant/internal/logger"
	"sop-assistant/internal/telemetry"
	"sop-assistant/models"
	"sop-assistant/services"
	"sop-assistant/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// Pacing delays for the streamed typewriter effect. Purely cosmetic; the
// full answer is already computed before streaming begins.
const (
	wordPace     = 40 * time.Millisecond
	sectionPause = 100 * time.Millisecond
)

func SetupAskRoutes(router *gin.Engine, cfg *config.Config, retriever *services.Retriever, gemini *ai.GeminiClient, metrics *telemetry.Metrics, mongoClient *mongo.Client) {
	messagesCollection := mongoClient.Database(cfg.DBName).Collection("messages")

	answerQuestion := func(c *gin.Context, question, sessionID string) (*models.AnswerResult, string, time.Duration, bool) {
		start := time.Now()

		result, err := retriever.Retrieve(c.Request.Context(), question)
		if err != nil {
			var embErr *services.EmbeddingError
			switch {
			case errors.Is(err, services.ErrEmptyQuery):
				utils.RespondWithError(c, http.StatusBadRequest, "empty_query",
					"Question must not be empty", nil)
			case errors.Is(err, services.ErrIndexUnavailable):
				utils.RespondWithUnavailable(c, "Vector index not loaded - run ingestion first")
			case errors.As(err, &embErr):
				utils.RespondWithError(c, http.StatusBadGateway, "embedding_provider_error",
					"Embedding provider failed", gin.H{"op": embErr.Op, "error": embErr.Err.Error()})
			default:
				utils.RespondWithInternalError(c, "Retrieval failed", err.Error())
			}
			return nil, "", 0, false
		}

		// Prefer an LLM-synthesized answer when a generative client is
		// configured; fall back to the formatted retrieval answer on any
		// LLM failure. Never falls back to not-found.
		answer := result.Answer
		if gemini != nil && result.Found {
			if llmAnswer, err := gemini.GenerateAnswer(c.Request.Context(), question, result.Contexts); err == nil {
				answer = llmAnswer
			} else {
				logger.Warn("LLM answer generation failed, using retrieval answer", "error", err)
			}
		}

		latency := time.Since(start)
		if metrics != nil {
			metrics.RecordQuestion(c.Request.Context(), result.Found, latency.Seconds())
		}
		saveMessage(messagesCollection, sessionID, question, answer, result, latency)

		return result, answer, latency, true
	}

	// JSON question answering
	router.POST("/ask", func(c *gin.Context) {
		var req models.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = "default"
		}

		result, answer, latency, ok := answerQuestion(c, req.Question, sessionID)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"answer":     answer,
			"found":      result.Found,
			"sources":    result.Sources,
			"session_id": sessionID,
			"latency_ms": latency.Milliseconds(),
			"timestamp":  time.Now(),
		})
	})

	// Streaming question answering for EventSource clients
	router.GET("/ask", func(c *gin.Context) {
		question := c.Query("question")
		sessionID := c.DefaultQuery("session_id", "default")

		// Answer first: failures come back as plain JSON errors. The
		// stream content type is committed only once there is an answer.
		start := time.Now()
		result, answer, _, ok := answerQuestion(c, question, sessionID)
		if !ok {
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		// Time-to-first-token, then the answer paced word by word.
		writeSSE(c, gin.H{"ttft": time.Since(start).Seconds()})
		streamWords(c, answer)

		writeSSE(c, gin.H{
			"complete":   true,
			"found":      result.Found,
			"sources":    result.Sources,
			"total_time": time.Since(start).Seconds(),
		})
	})
}

// streamWords emits the answer one word per SSE event with a short delay
// between words, ChatGPT-style. Stops early if the client disconnects.
func streamWords(c *gin.Context, answer string) {
	ctx := c.Request.Context()
	for _, line := range strings.Split(answer, "\n") {
		for _, word := range strings.Fields(line) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wordPace):
			}
			writeSSE(c, gin.H{"token": word + " "})
		}
		writeSSE(c, gin.H{"token": "\n"})
		select {
		case <-ctx.Done():
			return
		case <-time.After(sectionPause):
		}
	}
}

func writeSSE(c *gin.Context, payload gin.H) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}

// saveMessage persists the exchange for conversation history. Best-effort:
// the answer was already produced, a history write failure only gets logged.
func saveMessage(collection *mongo.Collection, sessionID, question, answer string, result *models.AnswerResult, latency time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	message := models.Message{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Found:     result.Found,
		Sources:   result.Sources,
		LatencyMS: latency.Milliseconds(),
		Timestamp: time.Now(),
	}
	if _, err := collection.InsertOne(ctx, message); err != nil {
		logger.Warn("Failed to save message", "session_id", sessionID, "error", err)
	}
}
