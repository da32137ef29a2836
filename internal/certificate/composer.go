package certificate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/assets"
	"bootcamp-cert-minter/internal/models"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	PhotoSize = 170

	NameFontSize = 30
	DateFontSize = 25
	MinFontSize  = 12
	fontStep     = 2

	// DateLineOffset is the distance from the top of the name line to the
	// top of the date line.
	DateLineOffset = 50

	fontDPI = 72
)

var (
	// PhotoSlot is where the resized photo is pasted on photo layouts.
	PhotoSlot = image.Rect(311, 452, 311+PhotoSize, 452+PhotoSize)

	NameColor color.Color = color.Black
	DateColor color.Color = color.NRGBA{R: 0x7C, G: 0x12, B: 0x1C, A: 0xFF}
)

type placement struct {
	name     image.Point
	centered bool
}

// Name anchors are top-left corners of the text line. Centered layouts only
// use the Y coordinate.
var placements = map[models.Layout]placement{
	models.LayoutIndividualPhoto: {name: image.Pt(520, 480)},
	models.LayoutBatchPhoto:      {name: image.Pt(520, 480)},
	models.LayoutBatchCentered:   {name: image.Pt(0, 420), centered: true},
}

// Composer renders certificates from the template store. It holds no
// mutable state.
type Composer struct {
	store *assets.Store
}

func NewComposer(store *assets.Store) *Composer {
	return &Composer{store: store}
}

// Compose renders one certificate. The result always has the template's
// bounds.
func (c *Composer) Compose(req models.CertificateRequest) (image.Image, error) {
	p, ok := placements[req.Layout]
	if !ok {
		return nil, apperr.NewInvalidInputError(fmt.Sprintf("unknown layout %q", req.Layout))
	}

	canvas := imaging.Clone(c.store.Template(req.Layout))

	if req.Layout.HasPhoto() {
		photo, err := imaging.Decode(bytes.NewReader(req.SourceImage), imaging.AutoOrientation(true))
		if err != nil {
			return nil, apperr.NewImageDecodeError(err)
		}
		photo = imaging.Resize(photo, PhotoSize, PhotoSize, imaging.Lanczos)
		canvas = imaging.Paste(canvas, photo, PhotoSlot.Min)
	}

	if err := drawLine(canvas, req.SubjectName, c.store.NameFont(), NameFontSize, NameColor, p.name, p.centered); err != nil {
		return nil, err
	}

	dateAnchor := image.Pt(p.name.X, p.name.Y+DateLineOffset)
	if err := drawLine(canvas, req.CompletionDate, c.store.DateFont(), DateFontSize, DateColor, dateAnchor, p.centered); err != nil {
		return nil, err
	}

	return canvas, nil
}

// CenteredOffset is the left edge that horizontally centers a line of
// textWidth pixels on a canvas of canvasWidth pixels.
func CenteredOffset(canvasWidth, textWidth int) int {
	return (canvasWidth - textWidth) / 2
}

func drawLine(dst draw.Image, text string, f *opentype.Font, size float64, col color.Color, anchor image.Point, centered bool) error {
	canvasWidth := dst.Bounds().Dx()
	available := canvasWidth - anchor.X
	if centered {
		available = canvasWidth
	}

	face, width, err := fitFace(f, text, size, available)
	if err != nil {
		return err
	}
	defer face.Close()

	x := anchor.X
	if centered {
		x = CenteredOffset(canvasWidth, width)
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, anchor.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
	return nil
}

// fitFace returns the largest face, from size down to MinFontSize, whose
// rendering of text fits in available pixels.
func fitFace(f *opentype.Font, text string, size float64, available int) (font.Face, int, error) {
	for {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     fontDPI,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("create font face: %w", err)
		}

		width := font.MeasureString(face, text).Ceil()
		if width <= available {
			return face, width, nil
		}
		face.Close()

		if size <= MinFontSize {
			return nil, 0, apperr.NewTextOverflowError(text, width, available)
		}
		size = math.Max(size-fontStep, MinFontSize)
	}
}

// MeasureLine reports the pixel width of text at the given size.
func MeasureLine(f *opentype.Font, text string, size float64) (int, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: fontDPI, Hinting: font.HintingFull})
	if err != nil {
		return 0, fmt.Errorf("create font face: %w", err)
	}
	defer face.Close()
	return font.MeasureString(face, text).Ceil(), nil
}
