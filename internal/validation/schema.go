package validation

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed detections_schema.json
var detectionsSchemaJSON string

var detectionsSchema *gojsonschema.Schema

func init() {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(detectionsSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid detections schema: %v", err))
	}
	detectionsSchema = schema
}

// ValidateDetections validates a serialized result.json document (the
// ordered sequence of per-page detection lists) against the schema before
// it is persisted.
func ValidateDetections(document []byte) error {
	result, err := detectionsSchema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("failed to validate: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}
