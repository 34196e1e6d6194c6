package colorfx_test

import (
	"testing"

	"github.com/renderlab/clipengine/internal/colorfx"
	"github.com/stretchr/testify/assert"
)

func pixel(r, g, b, a byte) []byte {
	return []byte{r, g, b, a}
}

func TestApplyGradeNeutralIsNoOp(t *testing.T) {
	pix := pixel(10, 120, 240, 200)
	colorfx.ApplyGrade(pix, colorfx.Adjustments{})
	assert.Equal(t, pixel(10, 120, 240, 200), pix)

	pix = pixel(10, 120, 240, 200)
	colorfx.ApplyGrade(pix, colorfx.Adjustments{Gamma: 1})
	assert.Equal(t, pixel(10, 120, 240, 200), pix)
}

func TestApplyGradeBrightness(t *testing.T) {
	pix := pixel(100, 100, 100, 255)
	colorfx.ApplyGrade(pix, colorfx.Adjustments{Brightness: 20})

	// 100/255 + 0.2 ≈ 0.592 → 151
	assert.Equal(t, byte(151), pix[0])
	assert.Equal(t, byte(255), pix[3], "alpha untouched")
}

func TestApplyGradeSingleClampAtEnd(t *testing.T) {
	// Extreme brightness pushes the value far above 1; extreme negative
	// contrast then pulls it back toward mid grey. With per-step clamping
	// the result would be exactly 0.5; the unclamped chain lands higher.
	pix := pixel(200, 200, 200, 255)
	colorfx.ApplyGrade(pix, colorfx.Adjustments{Brightness: 100, Contrast: -50})

	// v = 200/255 + 1 = 1.784; (1.784-0.5)*0.5+0.5 = 1.142 → clamps to 255.
	assert.Equal(t, byte(255), pix[0])

	clamped := pixel(255, 255, 255, 255)
	colorfx.ApplyGrade(clamped, colorfx.Adjustments{Contrast: -50})
	// Had the first pass clamped after brightness, both would agree at 191.
	assert.Equal(t, byte(191), clamped[0])
	assert.NotEqual(t, clamped[0], pix[0])
}

func TestApplyGradeContrastPivot(t *testing.T) {
	// Mid grey is the contrast pivot and must not move.
	pix := pixel(128, 128, 128, 255)
	colorfx.ApplyGrade(pix, colorfx.Adjustments{Contrast: 80})
	assert.InDelta(t, 128, int(pix[0]), 1)
}

func TestApplyGradeSaturationDesaturates(t *testing.T) {
	pix := pixel(200, 50, 50, 255)
	colorfx.ApplyGrade(pix, colorfx.Adjustments{Saturation: -100})

	assert.Equal(t, pix[0], pix[1])
	assert.Equal(t, pix[1], pix[2])
}

func TestApplyGradeHueRotation(t *testing.T) {
	// Pure red rotated 120° becomes pure green.
	pix := pixel(255, 0, 0, 255)
	colorfx.ApplyGrade(pix, colorfx.Adjustments{Hue: 120})

	assert.Equal(t, byte(0), pix[0])
	assert.Equal(t, byte(255), pix[1])
	assert.Equal(t, byte(0), pix[2])
}

func TestRGBHSLRoundTrip(t *testing.T) {
	type args struct {
		r, g, b float64
	}

	tests := []args{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0.5, 0.5, 0.5},
		{0.2, 0.7, 0.4},
		{0, 0, 0},
		{1, 1, 1},
	}

	for _, tt := range tests {
		h, s, l := colorfx.RGBToHSL(tt.r, tt.g, tt.b)
		r, g, b := colorfx.HSLToRGB(h, s, l)
		assert.InDelta(t, tt.r, r, 1e-9)
		assert.InDelta(t, tt.g, g, 1e-9)
		assert.InDelta(t, tt.b, b, 1e-9)
	}
}
