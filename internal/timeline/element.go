package timeline

import (
	"github.com/orsinium-labs/enum"
)

// Kind discriminates the timeline element variants.
type Kind enum.Member[string]

var (
	KindVideo   = Kind{Value: "video"}
	KindImage   = Kind{Value: "image"}
	KindText    = Kind{Value: "text"}
	KindAudio   = Kind{Value: "audio"}
	KindSticker = Kind{Value: "sticker"}
	KindCaption = Kind{Value: "caption"}
	Kinds       = enum.New(KindVideo, KindImage, KindText, KindAudio, KindSticker, KindCaption)
)

// Properties are the animatable draw attributes shared by all elements.
// Opacity is 0–100, Scale is percent, Rotation is degrees.
type Properties struct {
	Opacity  float64 `yaml:"opacity"`
	Rotation float64 `yaml:"rotation"`
	Scale    float64 `yaml:"scale"`
	Color    string  `yaml:"color"`
	FontSize float64 `yaml:"fontSize"`
}

func DefaultProperties() Properties {
	return Properties{
		Opacity:  100,
		Rotation: 0,
		Scale:    100,
		Color:    "#ffffff",
		FontSize: 24,
	}
}

// Element is one item the compositor can draw or the mixer can hear.
// Implementations are the closed set of variants below.
type Element interface {
	ID() string
	Kind() Kind
	Window() (start, end float64)
	Props() Properties
}

// Base carries the fields every variant shares.
type Base struct {
	ClipID     string     `yaml:"id"`
	Start      float64    `yaml:"start"`
	End        float64    `yaml:"end"`
	Properties Properties `yaml:"properties"`
}

func (b Base) ID() string                 { return b.ClipID }
func (b Base) Window() (float64, float64) { return b.Start, b.End }
func (b Base) Props() Properties          { return b.Properties }

type Video struct {
	Base       `yaml:",inline"`
	SourcePath string `yaml:"source"`
}

func (Video) Kind() Kind { return KindVideo }

type Image struct {
	Base       `yaml:",inline"`
	SourcePath string `yaml:"source"`
}

func (Image) Kind() Kind { return KindImage }

type Text struct {
	Base `yaml:",inline"`
	Text string `yaml:"text"`
}

func (Text) Kind() Kind { return KindText }

type Audio struct {
	Base       `yaml:",inline"`
	SourcePath string `yaml:"source"`
}

func (Audio) Kind() Kind { return KindAudio }

type Sticker struct {
	Base       `yaml:",inline"`
	SourcePath string `yaml:"source"`
}

func (Sticker) Kind() Kind { return KindSticker }

type Caption struct {
	Base `yaml:",inline"`
	Text string `yaml:"text"`
}

func (Caption) Kind() Kind { return KindCaption }

// VisibleAt reports whether the element's window contains t (inclusive on
// both edges).
func VisibleAt(el Element, t float64) bool {
	start, end := el.Window()
	return start <= t && t <= end
}
