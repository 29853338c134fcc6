package textdraw

import (
	"image"
	"image/draw"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

var (
	parseOnce  sync.Once
	parsedFont *truetype.Font
	parseErr   error
)

func regularFont() (*truetype.Font, error) {
	parseOnce.Do(func() {
		parsedFont, parseErr = freetype.ParseFont(goregular.TTF)
	})
	return parsedFont, parseErr
}

// Face returns a go-regular font face of the given point size.
func Face(size float64) (font.Face, error) {
	f, err := regularFont()
	if err != nil {
		return nil, xerror.Errorf("unable to parse built in font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		Hinting: font.HintingFull,
	}), nil
}

// Draw writes text onto canvas with its baseline at (x, y).
func Draw(canvas draw.Image, face font.Face, fg image.Image, x, y int, text string) {
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  fg,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

// DrawCentredOnLine draws text vertically centred on the line y, the way
// labels are placed on synthetic source frames.
func DrawCentredOnLine(canvas draw.Image, face font.Face, fg image.Image, x, y int, text string) {
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  fg,
		Face: face,
	}
	textBounds, _ := drawer.BoundString(text)
	textHeight := textBounds.Max.Y - textBounds.Min.Y
	yPosition := fixed.I(y-textHeight.Ceil())/2 + fixed.I(textHeight.Ceil())
	drawer.Dot = fixed.Point26_6{
		X: fixed.I(x),
		Y: yPosition,
	}
	drawer.DrawString(text)
}
