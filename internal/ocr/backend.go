package ocr

import (
	"context"

	"pdf-ocr-service/internal/models"
)

// Backend is a swappable text-recognition engine operating on one page
// bitmap at a time. Implementations must be safe for concurrent use; the
// registry hands the same instance to every in-flight task.
type Backend interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (models.PageResult, error)
}

// Backend names accepted in upload requests.
const (
	BackendTesseract = "tesseract"
	BackendVision    = "vision"
)
