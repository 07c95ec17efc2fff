package pdfview

import (
	"context"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// thumbnailOversample renders above the target width and scales down, which
// reads better than rasterizing small text directly.
const thumbnailOversample = 2

// Thumbnail renders page at most maxWidth pixels wide.
func Thumbnail(ctx context.Context, doc Document, page, maxWidth int) (*image.RGBA, error) {
	if maxWidth < 1 {
		return nil, fmt.Errorf("%w: width %d", ErrInvalidScale, maxWidth)
	}
	size, err := doc.PageSize(page)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrRender, page, err)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("%w: page %d has no area", ErrRender, page)
	}

	scale := float64(maxWidth) / size.Width
	src, err := doc.Render(ctx, page, scale*thumbnailOversample)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrRender, page, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := max(1, int(size.Height*scale))
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}
