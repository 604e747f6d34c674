package crop

import (
	"errors"
	"fmt"

	"github.com/unimarket/image-uploader/internal/model"
)

// ErrInvalidDimensions is returned when a source, container, or output
// dimension is zero or negative.
var ErrInvalidDimensions = errors.New("invalid dimensions")

// Zoom factors outside this range produce degenerate geometry and are
// clamped. The UI keeps its slider inside [0.5, 3.0], well within bounds.
const (
	MinScale = 0.1
	MaxScale = 10.0
)

// Rect is the destination rectangle, in output-canvas pixels, into which
// the entire source image is drawn. The canvas crops anything outside its
// own bounds, which is what turns the draw into a crop.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Transform maps a confirmed pan/zoom gesture into the destination
// rectangle for an output canvas of the given size. It is pure: the same
// inputs always produce the same rectangle.
//
// The gesture pan is applied as-is; a large pan can push the image partly
// or wholly off the canvas, leaving blank margins in the output.
func Transform(src, container model.Dimensions, fit model.FitMode, g model.Gesture, out model.Dimensions) (Rect, error) {
	if src.Width <= 0 || src.Height <= 0 {
		return Rect{}, fmt.Errorf("%w: source %gx%g", ErrInvalidDimensions, src.Width, src.Height)
	}
	if container.Width <= 0 || container.Height <= 0 {
		return Rect{}, fmt.Errorf("%w: container %gx%g", ErrInvalidDimensions, container.Width, container.Height)
	}
	if out.Width <= 0 || out.Height <= 0 {
		return Rect{}, fmt.Errorf("%w: output %gx%g", ErrInvalidDimensions, out.Width, out.Height)
	}

	// Size the image would take inside the container under the fit mode.
	fitScale := fittedScale(src, container, fit)
	containedW := src.Width * fitScale
	containedH := src.Height * fitScale

	// Apply the user's zoom on top of the fitted size.
	scale := clampScale(g.Scale)
	scaledW := containedW * scale
	scaledH := containedH * scale

	// Center the scaled image in the container, then apply the raw drag
	// offset in preview-pixel space.
	previewX := (container.Width-scaledW)/2 + g.X
	previewY := (container.Height-scaledH)/2 + g.Y

	// Uniform scale from preview space into output-canvas space.
	outScale := min(out.Width/container.Width, out.Height/container.Height)

	return Rect{
		X: previewX * outScale,
		Y: previewY * outScale,
		W: scaledW * outScale,
		H: scaledH * outScale,
	}, nil
}

// fittedScale returns the uniform factor that fits src into container.
// contain constrains on the tighter axis so nothing overflows; cover
// constrains on the looser axis so the container is fully covered.
func fittedScale(src, container model.Dimensions, fit model.FitMode) float64 {
	sx := container.Width / src.Width
	sy := container.Height / src.Height
	if fit == model.FitCover {
		return max(sx, sy)
	}
	return min(sx, sy)
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
