package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sop-assistant/internal/logger"

	"github.com/ledongthuc/pdf"
)

// PageText is the extracted text of one page of one source document.
type PageText struct {
	Source string // base filename of the originating document
	Page   int    // zero-based page number
	Text   string
}

// DocumentLoader discovers source documents and extracts per-page text.
// The ingestion pipeline depends on this interface so tests can feed it
// synthetic documents without real PDF files.
type DocumentLoader interface {
	Discover(dir string) ([]string, error)
	LoadPages(path string) ([]PageText, error)
}

// PDFLoader reads PDF files from disk.
type PDFLoader struct{}

func NewPDFLoader() *PDFLoader { return &PDFLoader{} }

// Discover lists PDF files in dir, sorted by name. A missing directory is
// reported the same as an empty one so ingestion can fail uniformly with
// ErrNoDocuments.
func (l *PDFLoader) Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadPages extracts the plain text of every page in the PDF at path.
// Pages that fail to extract are skipped with a warning rather than
// aborting the whole document.
func (l *PDFLoader) LoadPages(path string) ([]PageText, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	source := filepath.Base(path)
	totalPages := reader.NumPage()

	var pages []PageText
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract page text", "source", source, "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		pages = append(pages, PageText{
			Source: source,
			Page:   i - 1, // stored zero-based, displayed one-based
			Text:   text,
		})
	}

	return pages, nil
}
