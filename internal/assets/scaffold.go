package assets

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
)

// Sizes of the blank templates written by Scaffold. Production templates
// may be any size; text and photo placement are fixed offsets from the
// top-left corner.
const (
	ScaffoldPhotoWidth  = 800
	ScaffoldPhotoHeight = 1000
	ScaffoldBatchWidth  = 1000
	ScaffoldBatchHeight = 700
)

// ScaffoldPlaceholderColor fills the placeholder photo written by Scaffold.
var ScaffoldPlaceholderColor = color.NRGBA{R: 0x20, G: 0x40, B: 0xC0, A: 0xFF}

// Scaffold writes a development asset tree to dir: blank white templates,
// the Go italic and medium fonts, and a solid placeholder photo. If any of
// the files already exists nothing is written.
func Scaffold(dir string) error {
	white := color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	images := map[string]image.Image{
		PhotoTemplateFile: imaging.New(ScaffoldPhotoWidth, ScaffoldPhotoHeight, white),
		BatchTemplateFile: imaging.New(ScaffoldBatchWidth, ScaffoldBatchHeight, white),
		PlaceholderFile:   imaging.New(64, 64, ScaffoldPlaceholderColor),
	}
	fonts := map[string][]byte{
		NameFontFile: goitalic.TTF,
		DateFontFile: gomedium.TTF,
	}

	for _, file := range []string{PhotoTemplateFile, BatchTemplateFile, NameFontFile, DateFontFile, PlaceholderFile} {
		if err := ensureAbsent(filepath.Join(dir, file)); err != nil {
			return err
		}
	}

	for _, sub := range []string{"templates", "fonts"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", sub, err)
		}
	}

	for file, img := range images {
		if err := imaging.Save(img, filepath.Join(dir, file)); err != nil {
			return fmt.Errorf("failed to write %s: %w", file, err)
		}
	}
	for file, data := range fonts {
		if err := os.WriteFile(filepath.Join(dir, file), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", file, err)
		}
	}

	return nil
}

func ensureAbsent(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return nil
}
