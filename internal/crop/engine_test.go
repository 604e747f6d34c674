package crop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimarket/image-uploader/internal/model"
)

func dims(w, h float64) model.Dimensions {
	return model.Dimensions{Width: w, Height: h}
}

func TestTransform_ContainPortraitCentered(t *testing.T) {
	// A 1000x2000 portrait inscribed in a 500x500 preview box occupies
	// 250x500 and is centered horizontally.
	rect, err := Transform(
		dims(1000, 2000),
		dims(500, 500),
		model.FitContain,
		model.Gesture{Scale: 1},
		dims(500, 500),
	)
	require.NoError(t, err)

	assert.Equal(t, Rect{X: 125, Y: 0, W: 250, H: 500}, rect)
}

func TestTransform_CoverPortraitOverflows(t *testing.T) {
	rect, err := Transform(
		dims(1000, 2000),
		dims(500, 500),
		model.FitCover,
		model.Gesture{Scale: 1},
		dims(500, 500),
	)
	require.NoError(t, err)

	// Cover constrains on the looser axis: the image fills the width and
	// overflows vertically, centered.
	assert.Equal(t, Rect{X: 0, Y: -250, W: 500, H: 1000}, rect)
}

func TestTransform_Table(t *testing.T) {
	tests := []struct {
		name      string
		src       model.Dimensions
		container model.Dimensions
		fit       model.FitMode
		gesture   model.Gesture
		out       model.Dimensions
		want      Rect
	}{
		{
			name:      "zoom doubles the fitted size around the center",
			src:       dims(1000, 2000),
			container: dims(500, 500),
			fit:       model.FitContain,
			gesture:   model.Gesture{Scale: 2},
			out:       dims(500, 500),
			want:      Rect{X: 0, Y: -250, W: 500, H: 1000},
		},
		{
			name:      "pan shifts the centered position by the raw offset",
			src:       dims(1000, 2000),
			container: dims(500, 500),
			fit:       model.FitContain,
			gesture:   model.Gesture{X: 10, Y: -20, Scale: 1},
			out:       dims(500, 500),
			want:      Rect{X: 135, Y: -20, W: 250, H: 500},
		},
		{
			name:      "preview coordinates scale into a larger output canvas",
			src:       dims(1000, 2000),
			container: dims(500, 500),
			fit:       model.FitContain,
			gesture:   model.Gesture{Scale: 1},
			out:       dims(1200, 1200),
			want:      Rect{X: 300, Y: 0, W: 600, H: 1200},
		},
		{
			name:      "landscape source in wide banner container",
			src:       dims(2400, 600),
			container: dims(1200, 300),
			fit:       model.FitContain,
			gesture:   model.Gesture{Scale: 1},
			out:       dims(1200, 300),
			want:      Rect{X: 0, Y: 0, W: 1200, H: 300},
		},
		{
			name:      "square source covers square container exactly",
			src:       dims(800, 800),
			container: dims(400, 400),
			fit:       model.FitCover,
			gesture:   model.Gesture{Scale: 1},
			out:       dims(240, 240),
			want:      Rect{X: 0, Y: 0, W: 240, H: 240},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rect, err := Transform(tt.src, tt.container, tt.fit, tt.gesture, tt.out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rect)
		})
	}
}

func TestTransform_RoundTripFillsOutput(t *testing.T) {
	// scale=1, pan=(0,0), contain, matching aspect ratios: the
	// destination rect fills the output canvas exactly, zero offset.
	rect, err := Transform(
		dims(3000, 750),
		dims(1200, 300),
		model.FitContain,
		model.Gesture{Scale: 1},
		dims(2400, 600),
	)
	require.NoError(t, err)

	assert.Equal(t, Rect{X: 0, Y: 0, W: 2400, H: 600}, rect)
}

func TestTransform_SizeProperty(t *testing.T) {
	// For any UI-range scale, the rect size equals
	// containedSize * scale * previewToOutputScale.
	src := dims(1000, 2000)
	container := dims(500, 500)
	out := dims(1200, 1200)

	for _, scale := range []float64{0.5, 0.75, 1, 1.5, 2, 3} {
		rect, err := Transform(src, container, model.FitContain, model.Gesture{Scale: scale}, out)
		require.NoError(t, err)

		// containedSize is 250x500; previewToOutputScale is 2.4.
		assert.InDelta(t, 250*scale*2.4, rect.W, 1e-9, "scale %v", scale)
		assert.InDelta(t, 500*scale*2.4, rect.H, 1e-9, "scale %v", scale)
	}
}

func TestTransform_Idempotent(t *testing.T) {
	g := model.Gesture{X: 17.5, Y: -42.25, Scale: 1.73}

	first, err := Transform(dims(1234, 987), dims(500, 400), model.FitCover, g, dims(1200, 300))
	require.NoError(t, err)

	second, err := Transform(dims(1234, 987), dims(500, 400), model.FitCover, g, dims(1200, 300))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTransform_ClampsExtremeScale(t *testing.T) {
	tiny, err := Transform(dims(1000, 1000), dims(500, 500), model.FitContain, model.Gesture{Scale: 0.001}, dims(500, 500))
	require.NoError(t, err)

	huge, err := Transform(dims(1000, 1000), dims(500, 500), model.FitContain, model.Gesture{Scale: 1e6}, dims(500, 500))
	require.NoError(t, err)

	// Clamped to MinScale and MaxScale respectively.
	assert.InDelta(t, 500*MinScale, tiny.W, 1e-9)
	assert.InDelta(t, 500*MaxScale, huge.W, 1e-9)
}

func TestTransform_UnclampedPanLeavesBlankMargins(t *testing.T) {
	// Pan is applied raw: a pan larger than the container pushes the
	// image entirely off the canvas rather than being clamped back.
	rect, err := Transform(dims(1000, 1000), dims(500, 500), model.FitContain, model.Gesture{X: 1000, Y: 0, Scale: 1}, dims(500, 500))
	require.NoError(t, err)

	assert.Equal(t, float64(1000), rect.X)
}

func TestTransform_InvalidDimensions(t *testing.T) {
	tests := []struct {
		name      string
		src       model.Dimensions
		container model.Dimensions
		out       model.Dimensions
	}{
		{"zero source width", dims(0, 100), dims(500, 500), dims(500, 500)},
		{"negative source height", dims(100, -1), dims(500, 500), dims(500, 500)},
		{"zero container", dims(100, 100), dims(0, 0), dims(500, 500)},
		{"negative output width", dims(100, 100), dims(500, 500), dims(-10, 500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transform(tt.src, tt.container, model.FitContain, model.Gesture{Scale: 1}, tt.out)
			require.ErrorIs(t, err, ErrInvalidDimensions)
		})
	}
}
