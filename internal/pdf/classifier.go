package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/wudi/pdfkit/extractor"
	"github.com/wudi/pdfkit/ir"
)

// DefaultMinTextualChars is the first-page character threshold above which a
// document is considered textual and OCR is skipped.
const DefaultMinTextualChars = 20

// Classifier decides whether a PDF already carries a usable text layer by
// inspecting only the first page. Parse failures are returned to the caller,
// which owns the fall-back-to-OCR policy.
type Classifier struct {
	minChars int
}

// NewClassifier returns a classifier with the given first-page character
// threshold; values below 1 fall back to the default.
func NewClassifier(minChars int) *Classifier {
	if minChars < 1 {
		minChars = DefaultMinTextualChars
	}
	return &Classifier{minChars: minChars}
}

// IsTextual reports whether the first page holds at least the threshold of
// non-whitespace text. A multi-page PDF with an image-only cover page is
// classified as scanned even when later pages are textual; that is a known
// limitation of the first-page heuristic.
func (c *Classifier) IsTextual(ctx context.Context, pdfPath string) (bool, error) {
	pages, err := extractPages(ctx, pdfPath)
	if err != nil {
		return false, err
	}
	for _, page := range pages {
		if page.Page == 0 {
			return Textual(page.Content, c.minChars), nil
		}
	}
	// No text objects on the first page at all.
	return false, nil
}

// Textual is the classification policy: a page counts as textual when its
// stripped text reaches minChars characters.
func Textual(pageText string, minChars int) bool {
	return len(strings.TrimSpace(pageText)) >= minChars
}

// Extractor pulls the embedded text layer out of a textual PDF. No OCR is
// involved and no bounding boxes are produced on this path.
type Extractor struct{}

// NewExtractor returns a text-layer extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// ExtractText returns each page's text joined by a blank-line separator,
// preserving page order.
func (e *Extractor) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	pages, err := extractPages(ctx, pdfPath)
	if err != nil {
		return "", err
	}
	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		texts = append(texts, page.Content)
	}
	return JoinPages(texts), nil
}

// JoinPages concatenates per-page text with the blank-line separator used by
// both the extraction and the OCR path.
func JoinPages(pages []string) string {
	return strings.Join(pages, "\n\n")
}

func extractPages(ctx context.Context, pdfPath string) ([]extractor.PageText, error) {
	file, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pdfPath, err)
	}
	defer file.Close()

	pipe := ir.NewDefault()
	doc, err := pipe.Parse(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	dec := doc.Decoded()
	if dec == nil {
		return nil, errors.New("pdf pipeline produced no decoded document")
	}
	ext, err := extractor.New(dec)
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}
	pages, err := ext.ExtractText()
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	return pages, nil
}
