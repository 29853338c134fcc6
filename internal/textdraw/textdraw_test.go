package textdraw_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/bgblur/internal/textdraw"
)

func countNonBlack(img *image.RGBA) int {
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 || img.Pix[i+1] != 0 || img.Pix[i+2] != 0 {
			n++
		}
	}
	return n
}

func TestDrawRendersGlyphPixels(t *testing.T) {
	is := is.New(t)
	face, err := textdraw.Face(12)
	is.NoErr(err)

	canvas := image.NewRGBA(image.Rect(0, 0, 120, 40))
	textdraw.Draw(canvas, face, image.NewUniform(color.White), 20, 20, "30 FPS")

	is.True(countNonBlack(canvas) > 0)
}

func TestDrawEmptyStringLeavesCanvasUntouched(t *testing.T) {
	is := is.New(t)
	face, err := textdraw.Face(12)
	is.NoErr(err)

	canvas := image.NewRGBA(image.Rect(0, 0, 40, 40))
	textdraw.Draw(canvas, face, image.White, 5, 20, "")
	is.Equal(countNonBlack(canvas), 0)
}
