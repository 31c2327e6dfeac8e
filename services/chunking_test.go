package services

import (
	"strings"
	"testing"
)

func TestChunkPageEmptyInput(t *testing.T) {
	chunker := NewChunker(100, 20, 0)
	for _, text := range []string{"", "   ", "\n\t  \n"} {
		if got := chunker.ChunkPage(text, "doc.pdf", 0); got != nil {
			t.Fatalf("ChunkPage(%q) = %d chunks, want none", text, len(got))
		}
	}
}

func TestChunkPageShortTextSingleChunk(t *testing.T) {
	chunker := NewChunker(100, 20, 0)
	text := "Employees accrue 1.5 vacation days per month."

	chunks := chunker.ChunkPage(text, "handbook.pdf", 3)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	c := chunks[0]
	if c.Text != text {
		t.Errorf("chunk text = %q, want original text", c.Text)
	}
	if c.Source != "handbook.pdf" || c.Page != 3 || c.Order != 0 {
		t.Errorf("chunk metadata = {%s %d %d}, want {handbook.pdf 3 0}", c.Source, c.Page, c.Order)
	}
	if c.ChunkID == "" {
		t.Error("chunk ID not assigned")
	}
}

// With no separators in the text every cut is a hard cut, so the chunk count
// is exactly 1 + ceil((len-size)/(size-overlap)).
func TestChunkPageCountWithoutSeparators(t *testing.T) {
	const size, overlap = 100, 20
	chunker := NewChunker(size, overlap, 0)

	cases := []struct {
		length int
		want   int
	}{
		{100, 1},
		{101, 2},
		{180, 2},
		{260, 3},
		{261, 4},
	}
	for _, tc := range cases {
		text := strings.Repeat("x", tc.length)
		chunks := chunker.ChunkPage(text, "doc.pdf", 0)
		if len(chunks) != tc.want {
			t.Errorf("length %d: got %d chunks, want %d", tc.length, len(chunks), tc.want)
		}
	}
}

func TestChunkPageOverlap(t *testing.T) {
	const size, overlap = 100, 20
	chunker := NewChunker(size, overlap, 0)
	text := strings.Repeat("abcdefghij", 30) // 300 chars, no separators

	chunks := chunker.ChunkPage(text, "doc.pdf", 0)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		tail := prev[len(prev)-overlap:]
		if !strings.HasPrefix(chunks[i].Text, tail) {
			t.Errorf("chunk %d does not start with the previous chunk's last %d chars", i, overlap)
		}
	}
}

func TestChunkPageNoChunkExceedsSize(t *testing.T) {
	const size = 120
	chunker := NewChunker(size, 30, 0)
	text := "Step 1: power down the unit. Step 2: disconnect the supply line.\n\n" +
		strings.Repeat("Verify the gauge reads zero before opening the valve. ", 20)

	for i, c := range chunker.ChunkPage(text, "sop.pdf", 1) {
		if len(c.Text) > size {
			t.Errorf("chunk %d has %d chars, exceeds size %d", i, len(c.Text), size)
		}
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("chunk %d is whitespace-only", i)
		}
		if c.Order != i {
			t.Errorf("chunk %d has Order %d", i, c.Order)
		}
	}
}

// Dropping each chunk's leading overlap and concatenating the rest must
// reproduce the input, so no character is ever lost at a boundary.
func TestChunkPageReconstruction(t *testing.T) {
	const size, overlap = 80, 15
	chunker := NewChunker(size, overlap, 0)
	text := strings.Repeat("0123456789", 40) // separator-free, 400 chars

	chunks := chunker.ChunkPage(text, "doc.pdf", 0)
	var sb strings.Builder
	for i, c := range chunks {
		if i == 0 {
			sb.WriteString(c.Text)
			continue
		}
		sb.WriteString(c.Text[overlap:])
	}
	if sb.String() != text {
		t.Fatal("reconstructed text differs from input")
	}
}

// minChunk floors where breakpoint cuts may land: a separator close to the
// chunk start is ignored rather than producing a tiny interior chunk.
func TestChunkPageMinChunkFloorsBreakpoints(t *testing.T) {
	const size, overlap, minChunk = 100, 0, 90
	chunker := NewChunker(size, overlap, minChunk)

	// Single space at index 85: inside the slack window [80,100) but below
	// the minChunk floor, so the cut must fall back to the hard cut at 100.
	text := strings.Repeat("x", 85) + " " + strings.Repeat("x", 64) // 150 chars
	chunks := chunker.ChunkPage(text, "doc.pdf", 0)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if len(chunks[0].Text) < minChunk {
		t.Errorf("interior chunk has %d chars, below the %d floor", len(chunks[0].Text), minChunk)
	}
}

// A short final fragment is emitted as its own chunk, never discarded. The
// whole page text must survive chunking even with zero overlap.
func TestChunkPageKeepsShortFinalChunk(t *testing.T) {
	const size, overlap, minChunk = 100, 0, 100
	chunker := NewChunker(size, overlap, minChunk)
	text := strings.Repeat("y", 150) // tail fragment of 50 chars

	chunks := chunker.ChunkPage(text, "doc.pdf", 0)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if got := len(chunks[1].Text); got != 50 {
		t.Errorf("final chunk has %d chars, want 50", got)
	}
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Text)
	}
	if sb.String() != text {
		t.Fatal("chunked text does not cover the whole page")
	}

	// A page shorter than minChunk still yields its single chunk.
	short := chunker.ChunkPage("tiny", "doc.pdf", 0)
	if len(short) != 1 {
		t.Fatalf("short page: got %d chunks, want 1", len(short))
	}
}
