package compositor

import (
	"image"
	"image/color"
	stddraw "image/draw"
	"math"

	"github.com/renderlab/clipengine/internal/colorfx"
	"github.com/renderlab/clipengine/internal/keyframe"
	"github.com/renderlab/clipengine/internal/source"
	"github.com/renderlab/clipengine/internal/system"
	"github.com/renderlab/clipengine/internal/timeline"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// baseFontHeight is the pixel height of the bitmap face text renders with;
// FontSize scales relative to it.
const baseFontHeight = 13

type rasterizer struct {
	images *source.Store
	pool   *system.ImagePool
	width  int
	height int
}

// drawProps are the per-frame resolved draw attributes of one element.
type drawProps struct {
	opacity  float64 // 0..100
	rotation float64 // degrees
	scale    float64 // percent
	color    color.NRGBA
	fontSize float64
}

// resolveProps starts from the element's static properties and overrides
// whatever the keyframe engine animates for this element at time t.
func resolveProps(engine *keyframe.Engine, el timeline.Element, t float64) drawProps {
	props := el.Props()
	resolved := drawProps{
		opacity:  resolveValue(engine, el.ID(), "opacity", props.Opacity, t),
		rotation: resolveValue(engine, el.ID(), "rotation", props.Rotation, t),
		scale:    resolveValue(engine, el.ID(), "scale", props.Scale, t),
		fontSize: props.FontSize,
		color:    color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
	// An unparseable color is a recoverable validation problem: the element
	// still draws, in the default white.
	if rgb, err := colorfx.ParseHexColor(props.Color); err == nil {
		resolved.color = color.NRGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}
	}
	return resolved
}

func resolveValue(engine *keyframe.Engine, elementID, name string, fallback, t float64) float64 {
	if engine == nil {
		return fallback
	}
	id := elementID + "." + name
	kfs, err := engine.Keyframes(id)
	if err != nil || len(kfs) == 0 {
		return fallback
	}
	return engine.GetValueAtTime(id, t)
}

// drawElement rasterizes one element onto the frame: translate to canvas
// center, rotate, scale, draw the content at its anchor, then apply the
// element's opacity to that draw only.
func (r *rasterizer) drawElement(dst *image.RGBA, el timeline.Element, props drawProps) error {
	content, err := r.contentFor(el, props)
	if err != nil {
		return err
	}
	if content == nil || props.opacity <= 0 {
		return nil
	}

	fontScale := 1.0
	switch el.Kind() {
	case timeline.KindText, timeline.KindCaption:
		if props.fontSize > 0 {
			fontScale = props.fontSize / baseFontHeight
		}
	}
	m := r.transform(content.Bounds(), props, fontScale)

	if props.opacity >= 100 {
		draw.ApproxBiLinear.Transform(dst, m, content, content.Bounds(), draw.Over, nil)
		return nil
	}

	// Partial opacity: transform into a scratch layer, then composite it
	// under a uniform alpha mask so the fade applies to this element alone.
	scratch := r.pool.Get(dst.Bounds())
	defer r.pool.Put(scratch)
	draw.ApproxBiLinear.Transform(scratch, m, content, content.Bounds(), draw.Over, nil)

	alpha := uint8(math.Round(props.opacity / 100 * 255))
	mask := image.NewUniform(color.Alpha{A: alpha})
	stddraw.DrawMask(dst, dst.Bounds(), scratch, image.Point{}, mask, image.Point{}, stddraw.Over)
	return nil
}

// contentFor produces the native-resolution content image of an element.
// Audio elements have no pixels and render as nothing.
func (r *rasterizer) contentFor(el timeline.Element, props drawProps) (image.Image, error) {
	switch v := el.(type) {
	case timeline.Video:
		return r.images.Load(v.SourcePath)
	case timeline.Image:
		return r.images.Load(v.SourcePath)
	case timeline.Sticker:
		return r.images.Load(v.SourcePath)
	case timeline.Text:
		return renderText(v.Text, props.color), nil
	case timeline.Caption:
		return renderText(v.Text, props.color), nil
	default:
		return nil, nil
	}
}

// transform builds the affine matrix: translate to canvas center → rotate →
// scale → content anchored at its own center.
func (r *rasterizer) transform(content image.Rectangle, props drawProps, fontScale float64) f64.Aff3 {
	scale := props.scale / 100 * fontScale
	theta := props.rotation * math.Pi / 180
	sin, cos := math.Sincos(theta)

	cx := float64(r.width) / 2
	cy := float64(r.height) / 2
	hw := float64(content.Dx()) / 2
	hh := float64(content.Dy()) / 2

	a := scale * cos
	b := -scale * sin
	d := scale * sin
	e := scale * cos

	return f64.Aff3{
		a, b, cx - a*hw - b*hh,
		d, e, cy - d*hw - e*hh,
	}
}

// renderText rasterizes a string with the bitmap face at native size; the
// font size is folded into the element transform as an extra scale factor.
func renderText(text string, col color.NRGBA) *image.RGBA {
	if text == "" {
		return nil
	}
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	if width <= 0 {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, width, face.Height))
	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	drawer.DrawString(text)
	return img
}
