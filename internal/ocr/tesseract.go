package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pdf-ocr-service/internal/models"

	"github.com/otiai10/gosseract/v2"
)

// TesseractBackend is the fast local backend. The gosseract client carries
// the loaded language models, so it is constructed once and reused for every
// page; a client is not safe for concurrent use, hence the mutex.
type TesseractBackend struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractBackend warms up a Tesseract client for the given languages
// (e.g. "eng", "rus").
func NewTesseractBackend(languages []string) (*TesseractBackend, error) {
	client := gosseract.NewClient()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("set languages %v: %w", languages, err)
		}
	}
	return &TesseractBackend{client: client}, nil
}

func (b *TesseractBackend) Name() string { return BackendTesseract }

// Recognize runs OCR on a single page image and returns the page text plus
// per-line detections with rectangle bounds and confidence in [0, 1].
func (b *TesseractBackend) Recognize(ctx context.Context, image []byte) (models.PageResult, error) {
	if err := ctx.Err(); err != nil {
		return models.PageResult{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.client.SetImageFromBytes(image); err != nil {
		return models.PageResult{}, fmt.Errorf("set image: %w", err)
	}
	boxes, err := b.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return models.PageResult{}, fmt.Errorf("tesseract recognize: %w", err)
	}

	lines := make([]string, 0, len(boxes))
	detections := make([]models.Detection, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		lines = append(lines, text)
		detections = append(detections, models.Detection{
			BBox: []float64{
				float64(box.Box.Min.X), float64(box.Box.Min.Y),
				float64(box.Box.Max.X), float64(box.Box.Max.Y),
			},
			Text:       text,
			Confidence: clampConfidence(box.Confidence / 100.0),
		})
	}

	return models.PageResult{
		Text:       strings.Join(lines, "\n"),
		Detections: detections,
	}, nil
}

// Close releases the Tesseract client.
func (b *TesseractBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client.Close()
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
