package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	QuestionsTotal    metric.Int64Counter
	RetrievalDuration metric.Float64Histogram
	NotFoundTotal     metric.Int64Counter
	IngestDuration    metric.Float64Histogram
	ChunksIndexed     metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("sop-assistant")

	questionsTotal, err := meter.Int64Counter(
		"retrieval.questions.total",
		metric.WithDescription("Total questions asked"),
	)
	if err != nil {
		return nil, err
	}

	retrievalDuration, err := meter.Float64Histogram(
		"retrieval.duration",
		metric.WithDescription("Retrieval duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	notFoundTotal, err := meter.Int64Counter(
		"retrieval.not_found.total",
		metric.WithDescription("Questions with no sufficiently similar chunk"),
	)
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram(
		"ingestion.duration",
		metric.WithDescription("Ingestion run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksIndexed, err := meter.Int64Counter(
		"ingestion.chunks.indexed",
		metric.WithDescription("Chunks written to the vector index"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		QuestionsTotal:    questionsTotal,
		RetrievalDuration: retrievalDuration,
		NotFoundTotal:     notFoundTotal,
		IngestDuration:    ingestDuration,
		ChunksIndexed:     chunksIndexed,
	}, nil
}

// RecordQuestion records one answered question.
func (m *Metrics) RecordQuestion(ctx context.Context, found bool, seconds float64) {
	m.QuestionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("found", found)))
	m.RetrievalDuration.Record(ctx, seconds)
	if !found {
		m.NotFoundTotal.Add(ctx, 1)
	}
}
