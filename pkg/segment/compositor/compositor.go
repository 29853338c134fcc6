package compositor

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/tauraamui/bgblur/internal/textdraw"
	"github.com/tauraamui/bgblur/pkg/log"
	"github.com/tauraamui/xerror"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
)

var (
	ErrEmptyFrame = xerror.New("frame has zero width or height")
	ErrNoMask     = xerror.New("no mask to composite with")
	ErrClosed     = xerror.New("compositor has been closed")
	ErrTooLarge   = xerror.New("output size exceeds the pixel limit")
)

const (
	// MaxBlurRadius bounds the blur sigma, larger values are clamped.
	MaxBlurRadius = 64
	// MaxOutputPixels is the default limit on output width times height.
	MaxOutputPixels = 7680 * 4320
)

const (
	fpsFontSize = 12
	fpsOriginX  = 20
	fpsOriginY  = 20
)

type Option func(*Compositor)

func WithBlurRadius(px float64) Option {
	return func(c *Compositor) { c.SetBlurRadius(px) }
}

// WithMaxOutputPixels overrides MaxOutputPixels, values below one are ignored.
func WithMaxOutputPixels(n int) Option {
	return func(c *Compositor) {
		if n > 0 {
			c.maxPixels = n
		}
	}
}

func WithFPSOverlay(enabled bool) Option {
	return func(c *Compositor) { c.fpsOverlay = enabled }
}

// Compositor owns the output and scratch buffers used to turn a frame and
// a segmentation mask into a background blurred frame. It is not safe for
// concurrent use.
type Compositor struct {
	modelW, modelH int
	blurRadius     float64
	fpsOverlay     bool
	face           font.Face
	maxPixels      int
	closed         bool
	allocations    int

	output  *image.RGBA
	fitted  *image.RGBA
	blurred *image.RGBA
	maskUp  *image.Alpha
}

func New(modelW, modelH int, opts ...Option) *Compositor {
	c := &Compositor{
		modelW: modelW, modelH: modelH,
		fpsOverlay: true,
		maxPixels:  MaxOutputPixels,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.fpsOverlay {
		face, err := textdraw.Face(fpsFontSize)
		if err != nil {
			log.Error("Unable to load FPS overlay font, overlay disabled: %v", err)
			c.fpsOverlay = false
		}
		c.face = face
	}
	return c
}

func (c *Compositor) SetBlurRadius(px float64) {
	c.blurRadius = math.Max(0, math.Min(px, MaxBlurRadius))
}

// Fits reports whether a w by h output stays within the pixel limit.
func (c *Compositor) Fits(w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	return w <= c.maxPixels/h
}

// Allocations counts how many times the output buffers have been (re)allocated.
func (c *Compositor) Allocations() int { return c.allocations }

// Output returns the current output buffer, nil before the first allocation.
func (c *Compositor) Output() *image.RGBA { return c.output }

// EnsureOutputSize reallocates the output and scratch buffers when the
// requested size differs from the current one. It reports whether it
// allocated.
func (c *Compositor) EnsureOutputSize(w, h int) bool {
	if c.closed || !c.Fits(w, h) {
		return false
	}
	if c.output != nil && c.output.Rect.Dx() == w && c.output.Rect.Dy() == h {
		return false
	}

	r := image.Rect(0, 0, w, h)
	c.output = image.NewRGBA(r)
	c.fitted = image.NewRGBA(r)
	c.blurred = image.NewRGBA(r)
	c.maskUp = image.NewAlpha(r)
	c.allocations++
	return true
}

// Downscale resizes src to the model resolution. The returned buffer is newly
// allocated and owned by the caller, so it can be handed to the worker.
func (c *Compositor) Downscale(src *image.RGBA) (*image.RGBA, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if src == nil || src.Rect.Empty() {
		return nil, ErrEmptyFrame
	}

	scaled := image.NewRGBA(image.Rect(0, 0, c.modelW, c.modelH))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Rect, src, src.Rect, xdraw.Src, nil)
	return scaled, nil
}

// Composite draws src over a (optionally blurred) copy of itself, keeping
// only the pixels mask marks as foreground, and returns the output buffer.
// The mask may be any size, it is stretched over the output.
func (c *Compositor) Composite(mask *image.Alpha, src *image.RGBA, fps float64) (*image.RGBA, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if src == nil || src.Rect.Empty() {
		return nil, ErrEmptyFrame
	}
	if mask == nil || mask.Rect.Empty() {
		return nil, ErrNoMask
	}
	if c.output == nil && !c.EnsureOutputSize(src.Rect.Dx(), src.Rect.Dy()) {
		return nil, ErrTooLarge
	}

	out := c.output
	r := out.Rect

	xdraw.ApproxBiLinear.Scale(c.maskUp, r, mask, mask.Rect, xdraw.Src, nil)

	fg := c.fit(src)
	bg := fg
	if c.blurRadius > 0 {
		if err := gaussianBlur(c.blurred, fg, c.blurRadius); err != nil {
			return nil, err
		}
		bg = c.blurred
	}

	draw.Draw(out, r, bg, r.Min, draw.Src)
	draw.DrawMask(out, r, fg, r.Min, c.maskUp, r.Min, draw.Over)

	if c.fpsOverlay && c.face != nil {
		textdraw.Draw(out, c.face, image.Black, fpsOriginX, fpsOriginY, fmt.Sprintf("%d FPS", int(math.Round(fps))))
	}

	return out, nil
}

// fit returns src when it already matches the output layout, otherwise a
// copy of src stretched onto the output size.
func (c *Compositor) fit(src *image.RGBA) *image.RGBA {
	r := c.output.Rect
	if src.Rect == r && src.Stride == r.Dx()*4 {
		return src
	}
	xdraw.ApproxBiLinear.Scale(c.fitted, r, src, src.Rect, xdraw.Src, nil)
	return c.fitted
}

// Close drops every owned buffer. The compositor is unusable afterwards.
func (c *Compositor) Close() {
	c.closed = true
	c.output = nil
	c.fitted = nil
	c.blurred = nil
	c.maskUp = nil
	if c.face != nil {
		c.face.Close()
		c.face = nil
	}
}
