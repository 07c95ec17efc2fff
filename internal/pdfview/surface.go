package pdfview

import (
	"image"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Surface is a rendered page bitmap. CSSWidth and CSSHeight are the display
// size; the bitmap itself is DPR times larger for sharp output on dense screens.
type Surface struct {
	Page      int
	Scale     float64
	DPR       float64
	CSSWidth  float64
	CSSHeight float64
	Image     *image.RGBA
}

func newSurface(page int, size Size, scale, dpr float64) *Surface {
	vp := size.Scaled(scale)
	w := max(1, int(math.Floor(vp.Width*dpr)))
	h := max(1, int(math.Floor(vp.Height*dpr)))
	return &Surface{
		Page:      page,
		Scale:     scale,
		DPR:       dpr,
		CSSWidth:  vp.Width,
		CSSHeight: vp.Height,
		Image:     image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

// paint copies src into the surface, resampling when the rasterizer's
// rounding produced a slightly different size.
func (s *Surface) paint(src image.Image) {
	dst := s.Image
	if src.Bounds().Size() == dst.Bounds().Size() {
		xdraw.Copy(dst, image.Point{}, src, src.Bounds(), xdraw.Src, nil)
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
}

// Matches reports whether the surface was drawn for this scale and DPR.
func (s *Surface) Matches(scale, dpr float64) bool {
	return math.Abs(s.Scale-scale) < FitEpsilon && math.Abs(s.DPR-dpr) < FitEpsilon
}

// WritePNG encodes the bitmap.
func (s *Surface) WritePNG(w io.Writer) error {
	return png.Encode(w, s.Image)
}
