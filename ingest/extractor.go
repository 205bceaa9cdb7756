package ingest

import (
	"bytes"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	tome "github.com/nevindra/tome"
)

// Extractor converts raw upload bytes to page-break-delimited text ready for
// the ingestion pipeline.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// ContentType identifies a supported upload kind.
type ContentType string

const (
	TypeMarkdown ContentType = "text/markdown"
	TypeHTML     ContentType = "text/html"
	TypePDF      ContentType = "application/pdf"
)

// ContentTypeFromFilename maps a filename extension to a content type.
// Unknown extensions return an ErrUnsupportedType-wrapped error.
func ContentTypeFromFilename(filename string) (ContentType, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "md", "markdown":
		return TypeMarkdown, nil
	case "html", "htm":
		return TypeHTML, nil
	case "pdf":
		return TypePDF, nil
	default:
		return "", fmt.Errorf("%w: .%s", tome.ErrUnsupportedType, ext)
	}
}

// DefaultExtractors returns the built-in extractor set keyed by content type.
func DefaultExtractors() map[ContentType]Extractor {
	return map[ContentType]Extractor{
		TypeMarkdown: MarkdownExtractor{},
		TypeHTML:     HTMLExtractor{},
		TypePDF:      PDFExtractor{},
	}
}

// --- Markdown ---

// MarkdownExtractor validates UTF-8 and applies NFC normalization; the text
// otherwise passes through untouched, page-break markers included.
type MarkdownExtractor struct{}

func (MarkdownExtractor) Extract(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", tome.ErrEncoding
	}
	return norm.NFC.String(string(content)), nil
}

// --- HTML ---

// HTMLExtractor pulls readable article text out of an HTML document.
// The result is a single page: title as a heading, then the text content.
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", tome.ErrEncoding
	}
	article, err := readability.FromReader(bytes.NewReader(content), &url.URL{})
	if err != nil {
		return "", fmt.Errorf("extract html: %w", err)
	}
	var b strings.Builder
	if article.Title != "" {
		b.WriteString("# " + article.Title + "\n\n")
	}
	b.WriteString(article.TextContent)
	return norm.NFC.String(b.String()), nil
}

// --- PDF ---

// PDFExtractor extracts text page by page, emitting the pipeline's page-break
// marker between pages so the native PDF pagination survives ingestion.
type PDFExtractor struct{}

func (PDFExtractor) Extract(content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty PDF content")
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n"+PageBreakMarker+"\n"), nil
}
