package certificate

import (
	"bytes"
	"fmt"
	"image"

	"bootcamp-cert-minter/internal/apperr"

	"github.com/disintegration/imaging"
)

// EncodePNG serializes a rendered certificate for pinning.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode certificate png: %w", err)
	}
	return buf.Bytes(), nil
}

// ValidateImage checks that data decodes in full as a supported raster
// format, so truncated pixel data is caught as well as a bad header.
func ValidateImage(data []byte) error {
	if len(data) == 0 {
		return apperr.NewImageDecodeError(fmt.Errorf("empty image"))
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return apperr.NewImageDecodeError(err)
	}
	return nil
}
