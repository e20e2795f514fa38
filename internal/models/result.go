package models

// Detection is one recognized text region within a page. BBox carries either
// 4 numbers (x1, y1, x2, y2 rectangle) or 8 numbers (four corner points).
// The generative backend produces detections with text only.
type Detection struct {
	BBox       []float64 `json:"bbox,omitempty"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence,omitempty"`
}

// PageResult holds the recognition output for a single PDF page.
// Detections keep the reading order returned by the backend.
type PageResult struct {
	Text       string
	Detections []Detection
}
