// Package assetstest writes a complete asset directory for tests, using the
// Go fonts in place of the production typefaces.
package assetstest

import (
	"bytes"
	"image/color"
	"testing"

	"bootcamp-cert-minter/internal/assets"

	"github.com/disintegration/imaging"
)

const (
	PhotoTemplateWidth  = assets.ScaffoldPhotoWidth
	PhotoTemplateHeight = assets.ScaffoldPhotoHeight
	BatchTemplateWidth  = assets.ScaffoldBatchWidth
	BatchTemplateHeight = assets.ScaffoldBatchHeight
)

// PlaceholderColor fills the placeholder photo so tests can detect it.
var PlaceholderColor = assets.ScaffoldPlaceholderColor

// WriteDir creates the asset tree in a temp dir and returns its path.
func WriteDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	if err := assets.Scaffold(dir); err != nil {
		t.Fatalf("scaffold assets: %v", err)
	}
	return dir
}

// Load writes the asset tree and loads it.
func Load(t testing.TB) *assets.Store {
	t.Helper()
	store, err := assets.Load(WriteDir(t))
	if err != nil {
		t.Fatalf("load assets: %v", err)
	}
	return store
}

// PNG returns an encoded solid-color PNG of the given size.
func PNG(t testing.TB, width, height int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(width, height, c), imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
