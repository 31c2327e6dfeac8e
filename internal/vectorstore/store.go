// Package vectorstore provides an exact nearest-neighbor index over chunk
// embeddings with L2 distance, persisted to a single file. The index is
// built once by ingestion and read-only afterwards, so concurrent searches
// need no locking.
package vectorstore

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"sop-assistant/models"
)

// ErrNotFound is returned by Load when no index exists at the given path.
var ErrNotFound = errors.New("vector index not found")

// SearchResult pairs a chunk with its distance to the query vector.
// Lower distance means more similar.
type SearchResult struct {
	Chunk    models.DocumentChunk
	Distance float64
}

// Store is a flat vector index. Vectors and chunks are kept in parallel
// slices (vectors[i] belongs to chunks[i]).
type Store struct {
	model     string
	dimension int
	vectors   [][]float32
	chunks    []models.DocumentChunk
}

// New creates an empty index bound to the embedding model that will be used
// to produce its vectors. Queries must be embedded with the same model or
// distances are meaningless.
func New(model string) *Store {
	return &Store{model: model}
}

// Build creates an index from parallel vector/chunk slices.
func Build(model string, vectors [][]float32, chunks []models.DocumentChunk) (*Store, error) {
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("vectors and chunks length mismatch: %d vs %d", len(vectors), len(chunks))
	}
	s := New(model)
	for i := range vectors {
		if err := s.Add(vectors[i], chunks[i]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends one (vector, chunk) pair. The first vector fixes the
// dimension; later vectors must match it.
func (s *Store) Add(vector []float32, chunk models.DocumentChunk) error {
	if len(vector) == 0 {
		return errors.New("empty vector")
	}
	if s.dimension == 0 {
		s.dimension = len(vector)
	} else if len(vector) != s.dimension {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vector), s.dimension)
	}
	s.vectors = append(s.vectors, vector)
	s.chunks = append(s.chunks, chunk)
	return nil
}

// Search returns the k nearest chunks to the query vector, ordered by
// ascending distance. Fewer than k results are returned when the index
// holds fewer entries.
func (s *Store) Search(query []float32, k int) []SearchResult {
	if len(s.vectors) == 0 || len(query) != s.dimension || k <= 0 {
		return nil
	}

	results := make([]SearchResult, 0, len(s.vectors))
	for i := range s.vectors {
		results = append(results, SearchResult{
			Chunk:    s.chunks[i],
			Distance: l2Distance(query, s.vectors[i]),
		})
	}

	// Stable so equal-distance chunks keep their insertion order and the
	// ranking is reproducible across runs.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

func (s *Store) Len() int       { return len(s.chunks) }
func (s *Store) Model() string  { return s.model }
func (s *Store) Dimension() int { return s.dimension }

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// persistedIndex is the on-disk form. Gob keeps the file self-contained:
// vectors, chunks and the embedding model identifier travel together.
type persistedIndex struct {
	Model     string
	Dimension int
	Vectors   [][]float32
	Chunks    []models.DocumentChunk
}

// Save writes the index atomically: encode to a temp file in the target
// directory, then rename over the destination. A failed ingestion never
// leaves a truncated index behind.
func (s *Store) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "index-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := gob.NewEncoder(tmp)
	if err := enc.Encode(persistedIndex{
		Model:     s.model,
		Dimension: s.dimension,
		Vectors:   s.vectors,
		Chunks:    s.chunks,
	}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp index file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}

// Load reads an index from disk and verifies it was built with the given
// embedding model. A mismatch is an error: embedding queries with a
// different model than the corpus would produce meaningless distances.
func Load(path, model string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	var p persistedIndex
	if err := gob.NewDecoder(f).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode index file: %w", err)
	}

	if p.Model != model {
		return nil, fmt.Errorf("index was built with embedding model %q, configured model is %q", p.Model, model)
	}
	if len(p.Vectors) != len(p.Chunks) {
		return nil, errors.New("corrupt index: vectors and chunks length mismatch")
	}

	return &Store{
		model:     p.Model,
		dimension: p.Dimension,
		vectors:   p.Vectors,
		chunks:    p.Chunks,
	}, nil
}
