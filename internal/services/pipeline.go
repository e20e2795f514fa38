package services

import (
	"context"
	"fmt"
	"log"

	"pdf-ocr-service/internal/models"
	"pdf-ocr-service/internal/ocr"
	"pdf-ocr-service/internal/pdf"
	"pdf-ocr-service/internal/store"
)

// Classifier decides whether a PDF carries a usable text layer.
type Classifier interface {
	IsTextual(ctx context.Context, pdfPath string) (bool, error)
}

// Extractor pulls embedded text out of a textual PDF.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// Rasterizer renders PDF pages to in-memory bitmaps.
type Rasterizer interface {
	Render(ctx context.Context, pdfPath string) ([]pdf.PageImage, error)
}

// BackendResolver resolves a backend name to a recognition backend.
type BackendResolver interface {
	Get(name string) (ocr.Backend, error)
}

// Pipeline runs one task end to end: classify, then either extract the text
// layer or rasterize and recognize page by page, then assemble and persist
// the result artifacts. Stages for a single task are strictly sequential.
type Pipeline struct {
	classifier Classifier
	extractor  Extractor
	rasterizer Rasterizer
	backends   BackendResolver
	store      *store.Store
}

// NewPipeline wires the pipeline stages together.
func NewPipeline(classifier Classifier, extractor Extractor, rasterizer Rasterizer, backends BackendResolver, st *store.Store) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		extractor:  extractor,
		rasterizer: rasterizer,
		backends:   backends,
		store:      st,
	}
}

// Process executes the pipeline for a task and persists its artifacts.
// A classifier failure is not an error: the fall-back-to-OCR policy treats
// an unreadable or encrypted document as scanned. Rasterization and
// recognition failures propagate and fail the task.
func (p *Pipeline) Process(ctx context.Context, taskID, pdfPath, backendName string) error {
	textual, err := p.classifier.IsTextual(ctx, pdfPath)
	if err != nil {
		log.Printf("[PIPELINE] task=%s textual check failed, falling back to OCR: %v", taskID, err)
		textual = false
	}

	if textual {
		log.Printf("[PIPELINE] task=%s detected as textual, extracting text layer", taskID)
		text, err := p.extractor.ExtractText(ctx, pdfPath)
		if err != nil {
			return fmt.Errorf("extract text: %w", err)
		}
		return p.store.SaveResults(taskID, text, nil)
	}

	pages, err := p.rasterizer.Render(ctx, pdfPath)
	if err != nil {
		return fmt.Errorf("rasterize: %w", err)
	}

	backend, err := p.backends.Get(backendName)
	if err != nil {
		return err
	}
	log.Printf("[PIPELINE] task=%s recognizing %d page(s) with backend=%s", taskID, len(pages), backend.Name())

	texts := make([]string, 0, len(pages))
	detections := make([][]models.Detection, 0, len(pages))
	for _, page := range pages {
		result, err := backend.Recognize(ctx, page.Data)
		if err != nil {
			return fmt.Errorf("recognize page %d: %w", page.Index+1, err)
		}
		texts = append(texts, result.Text)
		detections = append(detections, result.Detections)
	}

	return p.store.SaveResults(taskID, pdf.JoinPages(texts), detections)
}
