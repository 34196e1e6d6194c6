package colorfx

import (
	"fmt"
	"math"

	"github.com/ansel1/merry/v2"
)

var ErrInvalidColor = merry.Sentinel("invalid color hex")

// RGB is an 8-bit color triple.
type RGB struct {
	R, G, B uint8
}

// ParseHexColor accepts #rgb and #rrggbb notations.
func ParseHexColor(s string) (RGB, error) {
	if len(s) == 0 || s[0] != '#' {
		return RGB{}, merry.Wrap(ErrInvalidColor, merry.AppendMessagef("%q", s))
	}

	var c RGB
	var err error
	switch len(s) {
	case 7:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 4:
		_, err = fmt.Sscanf(s, "#%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 17
		c.G *= 17
		c.B *= 17
	default:
		return RGB{}, merry.Wrap(ErrInvalidColor, merry.AppendMessagef("%q", s))
	}
	if err != nil {
		return RGB{}, merry.Wrap(ErrInvalidColor, merry.WithCause(err))
	}
	return c, nil
}

// KeyOptions configures a chroma-key pass.
type KeyOptions struct {
	Target       RGB
	Tolerance    float64 // 0..100, normalized color distance
	EdgeSoftness float64 // 0..100, width of the blend band past the tolerance
	KeepShadows  bool    // dark pixels keep ~30% alpha instead of vanishing
	KeepLights   bool    // bright pixels keep ~30% alpha instead of vanishing
}

const (
	shadowLuminance    = 80
	highlightLuminance = 200
	exceptionAlpha     = 0.3
)

// maxDistance normalizes Euclidean RGB distance into [0,100].
var maxDistance = math.Sqrt(3) * 255

// ApplyChromaKey keys pixels near the target color out of an RGBA buffer in
// place. Pixels within tolerance lose their alpha entirely, except shadows
// and highlights when the respective exceptions are enabled; pixels within
// the softness band just outside tolerance blend alpha linearly.
func ApplyChromaKey(pix []byte, opts KeyOptions) {
	for i := 0; i+3 < len(pix); i += 4 {
		r := float64(pix[i])
		g := float64(pix[i+1])
		b := float64(pix[i+2])

		dr := r - float64(opts.Target.R)
		dg := g - float64(opts.Target.G)
		db := b - float64(opts.Target.B)
		distance := math.Sqrt(dr*dr+dg*dg+db*db) / maxDistance * 100

		if distance <= opts.Tolerance {
			luminance := 0.299*r + 0.587*g + 0.114*b
			switch {
			case opts.KeepShadows && luminance < shadowLuminance:
				pix[i+3] = byte(float64(pix[i+3]) * exceptionAlpha)
			case opts.KeepLights && luminance > highlightLuminance:
				pix[i+3] = byte(float64(pix[i+3]) * exceptionAlpha)
			default:
				pix[i+3] = 0
			}
			continue
		}

		if opts.EdgeSoftness > 0 && distance <= opts.Tolerance+opts.EdgeSoftness {
			blend := (distance - opts.Tolerance) / opts.EdgeSoftness
			pix[i+3] = byte(float64(pix[i+3]) * blend)
		}
	}
}
