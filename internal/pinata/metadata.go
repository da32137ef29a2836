package pinata

import (
	"fmt"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// tokenMetadataSchema describes the document pinned as a certificate's
// token URI payload.
var tokenMetadataSchema = map[string]interface{}{
	"type":                 "object",
	"required":             []interface{}{"name", "image"},
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"name": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"image": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
			"pattern":   "^[A-Za-z0-9]+$",
		},
	},
}

// ValidateMetadata checks a metadata document before it is pinned. A
// document that fails validation is never sent to Pinata.
func ValidateMetadata(meta models.TokenMetadata) error {
	doc := map[string]interface{}{
		"name":  meta.Name,
		"image": meta.Image,
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(tokenMetadataSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return apperr.NewInvalidInputError(fmt.Sprintf("token metadata validation failed: %v", errs))
	}
	return nil
}
