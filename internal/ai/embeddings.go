package ai

import (
	"context"
	"fmt"
	"math"
	"time"

	"sop-assistant/internal/config"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// GeminiEmbedder produces embedding vectors via Google Generative AI
// (text-embedding-004 by default). Vectors are unit-normalized before being
// returned so L2 distances over them are comparable across calls.
// Embeddings are deterministic for a fixed model identifier.
type GeminiEmbedder struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

func NewGeminiEmbedder(ctx context.Context, cfg *config.Config) (*GeminiEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	})

	return &GeminiEmbedder{
		client:      client,
		model:       cfg.EmbeddingsModel,
		breaker:     breaker,
		rateLimiter: rate.NewLimiter(rate.Limit(2), 5),
	}, nil
}

// Model returns the embedding model identifier recorded with the index.
func (e *GeminiEmbedder) Model() string { return e.model }

func (e *GeminiEmbedder) Close() error { return e.client.Close() }

// Embed returns the embedding vector for a single text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-embeddings")
	ctx, span := tracer.Start(ctx, "gemini.embed")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", e.model))

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		model := e.client.EmbeddingModel(e.model)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	return normalize(result.([]float32)), nil
}

// EmbedBatch embeds many texts in one request. Used by ingestion to avoid a
// round trip per chunk.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	tracer := otel.Tracer("gemini-embeddings")
	ctx, span := tracer.Start(ctx, "gemini.embed_batch")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", e.model),
		attribute.Int("gemini.batch_size", len(texts)),
	)

	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		model := e.client.EmbeddingModel(e.model)
		batch := model.NewBatch()
		for _, t := range texts {
			batch = batch.AddContent(genai.Text(t))
		}
		resp, err := model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
		}
		vectors := make([][]float32, len(resp.Embeddings))
		for i, emb := range resp.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, fmt.Errorf("no embedding returned for text %d", i)
			}
			vectors[i] = normalize(emb.Values)
		}
		return vectors, nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch embed contents: %w", err)
	}

	return result.([][]float32), nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * norm
	}
	return out
}
