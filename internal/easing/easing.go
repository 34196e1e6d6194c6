package easing

import (
	"encoding/json"
	"math"

	"github.com/ansel1/merry/v2"
	"github.com/orsinium-labs/enum"
)

// Kind is a named curve-shaping function applied to normalized progress
// before interpolation.
type Kind enum.Member[string]

var (
	Linear     = Kind{Value: "linear"}
	EaseIn     = Kind{Value: "ease-in"}
	EaseOut    = Kind{Value: "ease-out"}
	EaseInOut  = Kind{Value: "ease-in-out"}
	Bounce     = Kind{Value: "bounce"}
	Elastic    = Kind{Value: "elastic"}
	Kinds      = enum.New(Linear, EaseIn, EaseOut, EaseInOut, Bounce, Elastic)
	ErrUnknown = merry.Sentinel("unknown easing kind")
)

//goland:noinspection GoMixedReceiverTypes
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Value)
}

//goland:noinspection GoMixedReceiverTypes
func (k *Kind) UnmarshalJSON(value []byte) error {
	var stringValue string
	err := json.Unmarshal(value, &stringValue)
	if err != nil {
		return err
	}
	kind := Kinds.Parse(stringValue)
	if kind == nil {
		return merry.Wrap(ErrUnknown, merry.AppendMessagef("%q", stringValue))
	}
	*k = *kind
	return nil
}

//goland:noinspection GoMixedReceiverTypes
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.Value, nil
}

//goland:noinspection GoMixedReceiverTypes
func (k *Kind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var stringValue string
	if err := unmarshal(&stringValue); err != nil {
		return err
	}
	kind := Kinds.Parse(stringValue)
	if kind == nil {
		return merry.Wrap(ErrUnknown, merry.AppendMessagef("%q", stringValue))
	}
	*k = *kind
	return nil
}

// Ease maps normalized progress to eased progress. Bounce and elastic may
// transiently leave [0,1] near the end of the curve.
func Ease(p float64, kind Kind) float64 {
	switch kind {
	case EaseIn:
		return p * p
	case EaseOut:
		return 1 - (1-p)*(1-p)
	case EaseInOut:
		if p < 0.5 {
			return 2 * p * p
		}
		return 1 - (-2*p+2)*(-2*p+2)/2
	case Bounce:
		return bounceOut(p)
	case Elastic:
		return elasticOut(p)
	default:
		return p
	}
}

// bounceOut is the standard bounce-out curve: piecewise quadratic in four
// segments with breakpoints at 1/2.75, 2/2.75 and 2.5/2.75.
func bounceOut(p float64) float64 {
	const n = 7.5625
	const d = 2.75
	switch {
	case p < 1/d:
		return n * p * p
	case p < 2/d:
		p -= 1.5 / d
		return n*p*p + 0.75
	case p < 2.5/d:
		p -= 2.25 / d
		return n*p*p + 0.9375
	default:
		p -= 2.625 / d
		return n*p*p + 0.984375
	}
}

func elasticOut(p float64) float64 {
	if p == 0 {
		return 0
	}
	if p == 1 {
		return 1
	}
	const c = 2 * math.Pi / 3
	return math.Pow(2, -10*p)*math.Sin((p*10-0.75)*c) + 1
}

// Interpolate blends v0..v1 across the [t0,t1] interval at time t, shaping
// progress with the given easing. A zero-width interval returns v0.
func Interpolate(v0, v1, t0, t1, t float64, kind Kind) float64 {
	if t0 == t1 {
		return v0
	}
	progress := (t - t0) / (t1 - t0)
	eased := Ease(progress, kind)
	return v0 + (v1-v0)*eased
}
