package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"sop-assistant/internal/config"
	"sop-assistant/internal/vectorstore"
	"sop-assistant/models"
)

// NotFoundAnswer is the canonical sentinel returned when no chunk is
// similar enough to the question.
const NotFoundAnswer = "This information is not available in the provided documents."

const (
	answerExcerptLen = 600 // excerpt length in the formatted answer text
	sourceExcerptLen = 250 // excerpt length in the structured source list
)

// Retriever answers questions against the loaded vector index. It holds no
// per-call state: the index and embedder are shared read-only, so Retrieve
// is safe to invoke concurrently.
type Retriever struct {
	cfg      *config.Config
	embedder Embedder
	index    atomic.Pointer[vectorstore.Store]
}

func NewRetriever(cfg *config.Config, embedder Embedder, store *vectorstore.Store) *Retriever {
	r := &Retriever{cfg: cfg, embedder: embedder}
	if store != nil {
		r.index.Store(store)
	}
	return r
}

// Reload swaps in a freshly loaded index. In-flight queries keep using the
// store they already resolved.
func (r *Retriever) Reload(store *vectorstore.Store) {
	r.index.Store(store)
}

// IndexSize returns the number of chunks in the currently served index.
func (r *Retriever) IndexSize() int {
	store := r.index.Load()
	if store == nil {
		return 0
	}
	return store.Len()
}

// Retrieve answers one question. Outcomes:
//   - nil, ErrEmptyQuery: degenerate input, nothing searched
//   - nil, *EmbeddingError: provider failure, distinct from not-found
//   - result with Found=false: no chunk similar enough (normal outcome)
//   - result with Found=true: formatted answer plus ranked sources
func (r *Retriever) Retrieve(ctx context.Context, question string) (*models.AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuery
	}

	store := r.index.Load()
	if store == nil {
		return nil, ErrIndexUnavailable
	}

	queryVec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, &EmbeddingError{Op: "embed_query", Err: err}
	}

	results := store.Search(queryVec, r.cfg.MaxResults)

	// The max-distance cutoff applies to the best match only: once the top
	// result qualifies, all k results are included so the answer shows the
	// context around the best hit. Individual trailing results may exceed
	// the threshold. Deliberate, tested policy.
	if len(results) == 0 || results[0].Distance > r.cfg.MaxDistance {
		return &models.AnswerResult{
			Found:   false,
			Answer:  NotFoundAnswer,
			Sources: []models.Source{},
		}, nil
	}

	return r.formatAnswer(question, results), nil
}

func (r *Retriever) formatAnswer(question string, results []vectorstore.SearchResult) *models.AnswerResult {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Answer to: *%s*\n\n", question)

	sources := make([]models.Source, 0, len(results))
	contexts := make([]string, 0, len(results))
	for i, res := range results {
		contexts = append(contexts, res.Chunk.Text)
		rank := i + 1
		displayPage := res.Chunk.Page + 1
		confidence := ConfidenceLabel(res.Distance)

		fmt.Fprintf(&sb, "### Source %d%s\n", rank, r.sourceAnnotation(displayPage, confidence))
		sb.WriteString(truncate(strings.TrimSpace(res.Chunk.Text), answerExcerptLen))
		sb.WriteString("\n\n")

		source := models.Source{
			Rank:     rank,
			Page:     displayPage,
			Excerpt:  truncate(strings.TrimSpace(res.Chunk.Text), sourceExcerptLen),
			Distance: res.Distance,
		}
		if r.cfg.ShowConfidenceScores {
			source.Confidence = confidence
		}
		sources = append(sources, source)
	}

	return &models.AnswerResult{
		Found:    true,
		Answer:   strings.TrimRight(sb.String(), "\n") + "\n",
		Sources:  sources,
		Contexts: contexts,
	}
}

// sourceAnnotation builds the parenthesized part of a source header,
// honoring the page-number and confidence display toggles independently.
func (r *Retriever) sourceAnnotation(displayPage int, confidence string) string {
	var parts []string
	if r.cfg.ShowPageNumbers {
		parts = append(parts, fmt.Sprintf("Page %d", displayPage))
	}
	if r.cfg.ShowConfidenceScores {
		parts = append(parts, fmt.Sprintf("Confidence: %s", confidence))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// ConfidenceLabel discretizes a distance score into a display bucket.
// Boundaries are exact: 0.5 is Medium, 0.8 is Low.
func ConfidenceLabel(distance float64) string {
	switch {
	case distance < 0.5:
		return "High"
	case distance < 0.8:
		return "Medium"
	default:
		return "Low"
	}
}

// truncate cuts text to at most limit bytes, backing up to a rune boundary
// so a multi-byte character is never split at the excerpt edge.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
