package crop

import (
	"errors"
	"fmt"
	"image"

	"github.com/fogleman/gg"

	"github.com/unimarket/image-uploader/internal/model"
)

// ErrRender is returned when the drawing surface cannot be created or the
// destination rectangle is degenerate.
var ErrRender = errors.New("render failed")

// Rasterizer draws a decoded source image into a fresh output canvas at a
// destination rectangle, optionally clipping to an inscribed circle first.
// Abstracting this keeps the transform math independent of the 2D backend.
type Rasterizer interface {
	Render(src image.Image, rect Rect, target model.CropTarget) (image.Image, error)
}

// GGRasterizer renders with the fogleman/gg 2D context.
type GGRasterizer struct{}

// NewGGRasterizer creates a new GGRasterizer.
func NewGGRasterizer() *GGRasterizer {
	return &GGRasterizer{}
}

// Render draws src scaled into rect on a target.OutputWidth x
// target.OutputHeight canvas. For circular targets the clip path is
// established before drawing, so content outside the circle is discarded.
func (r *GGRasterizer) Render(src image.Image, rect Rect, target model.CropTarget) (image.Image, error) {
	if target.OutputWidth <= 0 || target.OutputHeight <= 0 {
		return nil, fmt.Errorf("%w: output canvas %dx%d", ErrRender, target.OutputWidth, target.OutputHeight)
	}
	if rect.W <= 0 || rect.H <= 0 {
		return nil, fmt.Errorf("%w: destination rect %gx%g", ErrRender, rect.W, rect.H)
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty source image", ErrRender)
	}

	dc := gg.NewContext(target.OutputWidth, target.OutputHeight)

	if target.Circular {
		w := float64(target.OutputWidth)
		h := float64(target.OutputHeight)
		dc.DrawCircle(w/2, h/2, min(w, h)/2)
		dc.Clip()
	}

	// Map the full source image onto the destination rectangle.
	dc.Translate(rect.X, rect.Y)
	dc.Scale(rect.W/float64(bounds.Dx()), rect.H/float64(bounds.Dy()))
	dc.DrawImage(src, 0, 0)

	return dc.Image(), nil
}
