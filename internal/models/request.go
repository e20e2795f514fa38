package models

// StatusResponse represents the response when polling task status
type StatusResponse struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"` // "pending", "processing", "complete", "failed"
	Error  string `json:"error,omitempty"`
	Text   string `json:"textUrl,omitempty"`
	JSON   string `json:"jsonUrl,omitempty"`
}

// OCRResponse is the body returned by the synchronous /api/ocr endpoint.
type OCRResponse struct {
	Text string `json:"text"`
}

// ErrorResponse is the generic error body for rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
}
