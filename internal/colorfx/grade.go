package colorfx

import (
	"math"
)

// Adjustments describes one color grading pass. Zero values are neutral
// except Gamma, where 0 is treated as neutral (1.0) so an empty struct is a
// no-op.
type Adjustments struct {
	Brightness float64 // -100..100, additive in normalized space
	Contrast   float64 // -100..100, pivot at mid grey
	Exposure   float64 // -100..100, stops*100 multiplier
	Gamma      float64 // >0, 1.0 = neutral
	Saturation float64 // -100..100
	Hue        float64 // degrees, rotates around the wheel
	Vibrance   float64 // -100..100, boosts muted colors more than vivid ones
}

func (a Adjustments) neutralTone() bool {
	return a.Brightness == 0 && a.Contrast == 0 && a.Exposure == 0 && (a.Gamma == 0 || a.Gamma == 1)
}

func (a Adjustments) neutralColor() bool {
	return a.Saturation == 0 && a.Hue == 0 && a.Vibrance == 0
}

// ApplyGrade runs the grading chain over an RGBA buffer in place.
//
// Tone steps (exposure, brightness, contrast, gamma) accumulate in normalized
// float space and clamp to [0,255] once at the very end, never between steps:
// intermediate values may leave [0,1] and later steps are expected to see
// that, so per-step clamping would change results at extreme settings.
// Alpha is never touched.
func ApplyGrade(pix []byte, adj Adjustments) {
	tone := !adj.neutralTone()
	colorPass := !adj.neutralColor()
	if !tone && !colorPass {
		return
	}

	gamma := adj.Gamma
	if gamma == 0 {
		gamma = 1
	}
	exposureGain := math.Pow(2, adj.Exposure/100)
	contrastGain := 1 + adj.Contrast/100

	for i := 0; i+3 < len(pix); i += 4 {
		r := float64(pix[i]) / 255
		g := float64(pix[i+1]) / 255
		b := float64(pix[i+2]) / 255

		if tone {
			r = toneCurve(r, exposureGain, adj.Brightness/100, contrastGain, gamma)
			g = toneCurve(g, exposureGain, adj.Brightness/100, contrastGain, gamma)
			b = toneCurve(b, exposureGain, adj.Brightness/100, contrastGain, gamma)
		}

		if colorPass {
			h, s, l := RGBToHSL(r, g, b)
			h = math.Mod(h+adj.Hue/360+1, 1)
			s *= 1 + adj.Saturation/100
			if adj.Vibrance != 0 {
				s += adj.Vibrance / 100 * (1 - s) * s
			}
			s = clamp01(s)
			l = clamp01(l)
			r, g, b = HSLToRGB(h, s, l)
		}

		pix[i] = clampByte(r)
		pix[i+1] = clampByte(g)
		pix[i+2] = clampByte(b)
	}
}

func toneCurve(v, exposureGain, brightness, contrastGain, gamma float64) float64 {
	v *= exposureGain
	v += brightness
	v = (v-0.5)*contrastGain + 0.5
	if gamma != 1 {
		// Negative intermediates have no defined gamma; they stay negative
		// and are clamped with everything else at write-out.
		if v > 0 {
			v = math.Pow(v, 1/gamma)
		}
	}
	return v
}

// RGBToHSL converts normalized RGB to HSL, all components in [0,1].
func RGBToHSL(r, g, b float64) (h, s, l float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	l = (max + min) / 2

	if max == min {
		return 0, 0, l
	}

	d := max - min
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}

	switch max {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	h /= 6
	return h, s, l
}

// HSLToRGB converts HSL back to normalized RGB.
func HSLToRGB(h, s, l float64) (r, g, b float64) {
	if s == 0 {
		return l, l, l
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r = hueToRGB(p, q, h+1.0/3)
	g = hueToRGB(p, q, h)
	b = hueToRGB(p, q, h-1.0/3)
	return r, g, b
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampByte(v float64) byte {
	scaled := math.Round(v * 255)
	if scaled < 0 {
		return 0
	}
	if scaled > 255 {
		return 255
	}
	return byte(scaled)
}
