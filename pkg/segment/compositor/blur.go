package compositor

import (
	"image"

	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

// gaussianBlur blurs src into dst with OpenCV, deriving the kernel size from
// sigma. Both images must share the same bounds, anchored at the origin, with
// tightly packed rows.
func gaussianBlur(dst, src *image.RGBA, sigma float64) error {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if sigma <= 0 || w == 0 || h == 0 {
		copy(dst.Pix, src.Pix)
		return nil
	}

	in, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, src.Pix)
	if err != nil {
		return xerror.Errorf("unable to wrap frame for blur: %w", err)
	}
	defer in.Close()

	out := gocv.NewMat()
	defer out.Close()

	gocv.GaussianBlur(in, &out, image.Point{}, sigma, sigma, gocv.BorderDefault)
	if out.Empty() || out.Rows() != h || out.Cols() != w {
		return xerror.New("blur produced unexpected output").WithParam("width", w).WithParam("height", h)
	}
	copy(dst.Pix, out.ToBytes())
	return nil
}
