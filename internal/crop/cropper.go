package crop

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/unimarket/image-uploader/internal/model"
)

// ErrImageDecode is returned when the source bytes are not a readable image.
var ErrImageDecode = errors.New("image decode failed")

// jpegQuality is used whenever the output is encoded as JPEG.
const jpegQuality = 95

// Cropper runs the full crop pipeline for one file: decode the source,
// compute the destination rectangle from the confirmed gesture, render,
// and encode the result.
type Cropper struct {
	raster Rasterizer
}

// NewCropper creates a Cropper that renders with the given backend.
func NewCropper(r Rasterizer) *Cropper {
	return &Cropper{raster: r}
}

// Crop decodes data, applies the gesture against the given preview
// container, and returns the encoded output plus its content type.
//
// The output keeps the source's encoding when it is one imaging can write
// (png, gif, bmp, tiff); everything else is encoded as JPEG.
func (c *Cropper) Crop(data []byte, container model.Dimensions, g model.Gesture, target model.CropTarget) ([]byte, string, error) {
	// Sniff the source format before decoding so the encoding survives
	// the round trip.
	_, formatName, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	bounds := src.Bounds()
	rect, err := Transform(
		model.Dimensions{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())},
		container,
		target.Fit,
		g,
		model.Dimensions{Width: float64(target.OutputWidth), Height: float64(target.OutputHeight)},
	)
	if err != nil {
		return nil, "", err
	}

	out, err := c.raster.Render(src, rect, target)
	if err != nil {
		return nil, "", err
	}

	format, err := imaging.FormatFromExtension(formatName)
	if err != nil {
		format = imaging.JPEG
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, format, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", fmt.Errorf("%w: encode: %v", ErrRender, err)
	}

	return buf.Bytes(), contentTypeFor(format), nil
}

func contentTypeFor(f imaging.Format) string {
	switch f {
	case imaging.PNG:
		return "image/png"
	case imaging.GIF:
		return "image/gif"
	case imaging.BMP:
		return "image/bmp"
	case imaging.TIFF:
		return "image/tiff"
	default:
		return "image/jpeg"
	}
}
