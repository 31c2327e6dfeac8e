package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sop-assistant/internal/config"
	"sop-assistant/internal/logger"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// GeminiClient generates answer text from retrieved context chunks. It is
// optional: when unavailable the serving layer falls back to formatted
// retrieval output.
type GeminiClient struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &GeminiClient{
		client:      client,
		model:       cfg.GeminiModel,
		breaker:     breaker,
		rateLimiter: rate.NewLimiter(rate.Limit(2), 5),
	}, nil
}

func (gc *GeminiClient) Close() error { return gc.client.Close() }

// GenerateAnswer synthesizes an answer to the question from the retrieved
// context chunks.
func (gc *GeminiClient) GenerateAnswer(ctx context.Context, question string, contextChunks []string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_answer")
	defer span.End()
	span.SetAttributes(
		attribute.Int("gemini.context_chunks", len(contextChunks)),
		attribute.String("gemini.model", gc.model),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	prompt := buildPrompt(question, contextChunks)

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SetTemperature(0.1)
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, fmt.Errorf("no candidates returned")
		}
		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		if sb.Len() == 0 {
			return nil, fmt.Errorf("empty response")
		}
		return sb.String(), nil
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return result.(string), nil
}

func buildPrompt(question string, contextChunks []string) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful SOP (Standard Operating Procedure) assistant. Answer the user's question based on the provided context from their documents.\n\n")
	sb.WriteString("Guidelines:\n")
	sb.WriteString("- Answer based on the provided context\n")
	sb.WriteString("- If context doesn't contain enough information, acknowledge this\n")
	sb.WriteString("- Be concise but comprehensive\n")
	sb.WriteString("- Use clear, professional language\n\n")
	sb.WriteString("Context from documents:\n")
	sb.WriteString(strings.Join(contextChunks, "\n\n"))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}
