package colorfx_test

import (
	"testing"

	"github.com/renderlab/clipengine/internal/colorfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	type args struct {
		input    string
		expected colorfx.RGB
		wantErr  bool
	}

	tests := []args{
		{"#00ff00", colorfx.RGB{0, 255, 0}, false},
		{"#0f0", colorfx.RGB{0, 255, 0}, false},
		{"#1a2B3c", colorfx.RGB{26, 43, 60}, false},
		{"00ff00", colorfx.RGB{}, true},
		{"#00ff0", colorfx.RGB{}, true},
		{"#zzzzzz", colorfx.RGB{}, true},
		{"", colorfx.RGB{}, true},
	}

	for _, tt := range tests {
		c, err := colorfx.ParseHexColor(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, colorfx.ErrInvalidColor, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.expected, c, "input %q", tt.input)
	}
}

func fill(w, h int, c colorfx.RGB) []byte {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i] = c.R
		pix[i+1] = c.G
		pix[i+2] = c.B
		pix[i+3] = 255
	}
	return pix
}

func TestChromaKeySolidTargetFullyTransparent(t *testing.T) {
	green := colorfx.RGB{R: 0, G: 255, B: 0}
	pix := fill(8, 8, green)

	colorfx.ApplyChromaKey(pix, colorfx.KeyOptions{Target: green, Tolerance: 50})

	for i := 3; i < len(pix); i += 4 {
		assert.Equal(t, byte(0), pix[i])
	}
}

func TestChromaKeyShadowHighlightExceptions(t *testing.T) {
	target := colorfx.RGB{R: 20, G: 30, B: 20}
	pix := fill(1, 1, target)

	colorfx.ApplyChromaKey(pix, colorfx.KeyOptions{
		Target:      target,
		Tolerance:   50,
		KeepShadows: true,
	})

	// Luminance well below 80: alpha drops to ~30%, not zero.
	exceptionAlpha := float64(255) * 0.3
	assert.Equal(t, byte(exceptionAlpha), pix[3])

	bright := colorfx.RGB{R: 240, G: 250, B: 240}
	pix = fill(1, 1, bright)
	colorfx.ApplyChromaKey(pix, colorfx.KeyOptions{
		Target:     bright,
		Tolerance:  50,
		KeepLights: true,
	})
	assert.Equal(t, byte(exceptionAlpha), pix[3])
}

func TestChromaKeyEdgeSoftnessBand(t *testing.T) {
	target := colorfx.RGB{R: 0, G: 255, B: 0}

	// Distance from pure green: sqrt(60^2)/(sqrt(3)*255)*100 ≈ 13.6.
	near := fill(1, 1, colorfx.RGB{R: 60, G: 255, B: 0})
	colorfx.ApplyChromaKey(near, colorfx.KeyOptions{
		Target:       target,
		Tolerance:    10,
		EdgeSoftness: 10,
	})
	assert.Greater(t, near[3], byte(0))
	assert.Less(t, near[3], byte(255))

	// Far outside tolerance+softness: untouched.
	far := fill(1, 1, colorfx.RGB{R: 255, G: 0, B: 0})
	colorfx.ApplyChromaKey(far, colorfx.KeyOptions{
		Target:       target,
		Tolerance:    10,
		EdgeSoftness: 10,
	})
	assert.Equal(t, byte(255), far[3])
}
