package model

import "fmt"

// FitMode selects how the source image is fitted into the preview container
// before the user's zoom and pan are applied. Semantics match the CSS
// object-fit values of the same names.
type FitMode string

const (
	// FitContain inscribes the whole image in the container without cropping.
	FitContain FitMode = "contain"
	// FitCover fills the container and lets the overflow be cropped away.
	FitCover FitMode = "cover"
)

// ParseFitMode converts a config or wire string into a FitMode.
func ParseFitMode(s string) (FitMode, error) {
	switch FitMode(s) {
	case FitContain, FitCover:
		return FitMode(s), nil
	default:
		return "", fmt.Errorf("unknown fit mode: %q", s)
	}
}

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Gesture is the user's confirmed pan/zoom input, expressed in the
// coordinate space of the preview container. X and Y are the raw drag
// offset; Scale is the zoom factor applied on top of the fitted size.
type Gesture struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// CropTarget is the fixed output contract for one kind of marketplace
// image (avatar, listing photo, shop logo, shop banner).
type CropTarget struct {
	Name         string  `json:"name"`
	OutputWidth  int     `json:"output_width"`
	OutputHeight int     `json:"output_height"`
	Fit          FitMode `json:"fit"`
	Circular     bool    `json:"circular"`
}
