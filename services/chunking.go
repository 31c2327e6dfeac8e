package services

import (
	"strings"

	"sop-assistant/models"

	"github.com/google/uuid"
)

// Chunker splits page text into overlapping fixed-size windows. Boundaries
// prefer natural breakpoints (paragraph, then sentence, then word) near the
// end of the window, falling back to a hard cut when none exists. That
// preference is a quality heuristic; the hard invariants are that no chunk
// exceeds chunkSize characters and no chunk is empty.
type Chunker struct {
	chunkSize int
	overlap   int
	minChunk  int
}

// NewChunker creates a chunker. overlap must be smaller than chunkSize;
// config validation enforces that before a Chunker is ever built. minChunk
// is a floor on where breakpoint cuts may land, so no interior chunk is
// shorter than minChunk characters. The final chunk of a page may still be
// shorter; no input text is ever discarded.
func NewChunker(chunkSize, overlap, minChunk int) *Chunker {
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		minChunk:  minChunk,
	}
}

// ChunkPage splits the text of one document page into chunks carrying the
// source filename and zero-based page number. Consecutive chunks overlap by
// the configured amount so no fact is truncated at a chunk boundary. Empty
// or whitespace-only input yields no chunks.
func (c *Chunker) ChunkPage(text, source string, page int) []models.DocumentChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []models.DocumentChunk
	appendChunk := func(piece string) {
		if strings.TrimSpace(piece) == "" {
			return
		}
		chunks = append(chunks, models.DocumentChunk{
			ChunkID: uuid.NewString(),
			Text:    piece,
			Source:  source,
			Page:    page,
			Order:   len(chunks),
		})
	}

	start := 0
	for start < len(text) {
		end := start + c.chunkSize
		if end >= len(text) {
			appendChunk(text[start:])
			break
		}

		cut := c.breakpoint(text, start, end)
		appendChunk(text[start:cut])

		next := cut - c.overlap
		if next <= start {
			// Overlap would stall the walk; drop it for this step.
			next = cut
		}
		start = next
	}

	return chunks
}

// breakpoint picks where to cut the window [start, end). It scans a slack
// region at the window's tail for the last paragraph break, then sentence
// end, then word boundary, and cuts just after it. No separator in the
// slack region means a hard cut at end. The scan never reaches back past
// start+minChunk, so breakpoint cuts cannot produce an interior chunk
// shorter than minChunk.
func (c *Chunker) breakpoint(text string, start, end int) int {
	slack := c.chunkSize / 5
	if slack < 1 {
		return end
	}
	windowStart := end - slack
	if windowStart < start+c.minChunk {
		windowStart = start + c.minChunk
	}
	if windowStart <= start {
		windowStart = start + 1
	}
	if windowStart >= end {
		return end
	}
	window := text[windowStart:end]

	for _, sep := range []string{"\n\n", ". ", "\n", " "} {
		if i := strings.LastIndex(window, sep); i >= 0 {
			return windowStart + i + len(sep)
		}
	}
	return end
}
