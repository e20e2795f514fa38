package validation

import "testing"

func TestValidateDetections(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"empty sequence (textual path)", `[]`, false},
		{"empty page", `[[]]`, false},
		{
			"rectangle detection",
			`[[{"bbox": [0, 0, 10, 10], "text": "hi", "confidence": 0.95}]]`,
			false,
		},
		{
			"polygon detection",
			`[[{"bbox": [0, 0, 10, 0, 10, 10, 0, 10], "text": "hi", "confidence": 1}]]`,
			false,
		},
		{"text-only detection", `[[{"text": "blob"}]]`, false},
		{"missing text", `[[{"bbox": [0, 0, 1, 1]}]]`, true},
		{"confidence out of range", `[[{"text": "x", "confidence": 1.5}]]`, true},
		{"bbox too short", `[[{"text": "x", "bbox": [1, 2, 3]}]]`, true},
		{"unknown field", `[[{"text": "x", "page": 1}]]`, true},
		{"not an array", `{"pages": []}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDetections([]byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDetections(%s) error = %v, wantErr %v", tt.doc, err, tt.wantErr)
			}
		})
	}
}
