// Package assets loads the read-only certificate templates, fonts and the
// placeholder photo used when a batch row's image cannot be fetched.
package assets

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/models"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font/opentype"
)

// Paths relative to the assets directory.
const (
	PhotoTemplateFile = "templates/certificate_photo.png"
	BatchTemplateFile = "templates/certificate_batch.png"
	NameFontFile      = "fonts/name_italic.ttf"
	DateFontFile      = "fonts/date_medium.ttf"
	PlaceholderFile   = "placeholder.png"
)

// Store holds every asset in memory. It is immutable after Load and safe
// for concurrent use.
type Store struct {
	photoTemplate image.Image
	batchTemplate image.Image
	nameFont      *opentype.Font
	dateFont      *opentype.Font
	placeholder   []byte
}

// Load reads all assets from dir. Any missing or unreadable file is
// reported as an ASSET_MISSING error.
func Load(dir string) (*Store, error) {
	s := &Store{}

	var err error
	if s.photoTemplate, err = loadImage(filepath.Join(dir, PhotoTemplateFile)); err != nil {
		return nil, err
	}
	if s.batchTemplate, err = loadImage(filepath.Join(dir, BatchTemplateFile)); err != nil {
		return nil, err
	}
	if s.nameFont, err = loadFont(filepath.Join(dir, NameFontFile)); err != nil {
		return nil, err
	}
	if s.dateFont, err = loadFont(filepath.Join(dir, DateFontFile)); err != nil {
		return nil, err
	}

	placeholderPath := filepath.Join(dir, PlaceholderFile)
	data, err := os.ReadFile(placeholderPath)
	if err != nil {
		return nil, apperr.NewAssetMissingError(placeholderPath, err)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, apperr.NewAssetMissingError(placeholderPath, fmt.Errorf("placeholder is not an image: %w", err))
	}
	s.placeholder = data

	return s, nil
}

// Template returns the background for a layout. Callers must clone it
// before drawing.
func (s *Store) Template(layout models.Layout) image.Image {
	if layout == models.LayoutIndividualPhoto {
		return s.photoTemplate
	}
	return s.batchTemplate
}

func (s *Store) NameFont() *opentype.Font {
	return s.nameFont
}

func (s *Store) DateFont() *opentype.Font {
	return s.dateFont
}

// Placeholder returns the encoded placeholder photo.
func (s *Store) Placeholder() []byte {
	return s.placeholder
}

func loadImage(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, apperr.NewAssetMissingError(path, err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, apperr.NewAssetMissingError(path, fmt.Errorf("failed to decode template: %w", err))
	}
	return img, nil
}

func loadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.NewAssetMissingError(path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, apperr.NewAssetMissingError(path, fmt.Errorf("failed to parse font: %w", err))
	}
	return f, nil
}
