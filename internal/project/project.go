// Package project persists one editing session as a YAML document and
// rebuilds the session from it.
package project

import (
	"encoding/json"
	"os"

	"github.com/ansel1/merry/v2"
	"github.com/renderlab/clipengine/internal/audio"
	"github.com/renderlab/clipengine/internal/easing"
	"github.com/renderlab/clipengine/internal/keyframe"
	"github.com/renderlab/clipengine/internal/timeline"
	"gopkg.in/yaml.v3"
)

const DocumentVersion = "1.0"

var ErrValidation = merry.Sentinel("invalid project document")

// Document is the on-disk shape of a project. Elements are stored as tagged
// mappings so the variant survives serialization.
type Document struct {
	Version    string                 `yaml:"version"`
	Timeline   TimelineDoc            `yaml:"timeline"`
	Overlays   []timeline.OverlayClip `yaml:"overlays,omitempty"`
	Elements   []ElementDoc           `yaml:"elements,omitempty"`
	Animations []AnimationDoc         `yaml:"animations,omitempty"`
	Mixer      *MixerDoc              `yaml:"mixer,omitempty"`
	Export     *ExportDoc             `yaml:"export,omitempty"`
}

type TimelineDoc struct {
	Duration  float64            `yaml:"duration"`
	Playhead  float64            `yaml:"playhead"`
	TrimStart float64            `yaml:"trimStart"`
	TrimEnd   float64            `yaml:"trimEnd"`
	AudioBed  *timeline.AudioBed `yaml:"audioBed,omitempty"`
}

type ElementDoc struct {
	Kind       string              `yaml:"kind"`
	ID         string              `yaml:"id"`
	Start      float64             `yaml:"start"`
	End        float64             `yaml:"end"`
	Properties timeline.Properties `yaml:"properties"`
	Source     string              `yaml:"source,omitempty"`
	Text       string              `yaml:"text,omitempty"`
}

type AnimationDoc struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name"`
	Keyframes []KeyframeDoc `yaml:"keyframes"`
}

type KeyframeDoc struct {
	ID     string      `yaml:"id"`
	Time   float64     `yaml:"time"`
	Value  float64     `yaml:"value"`
	Easing easing.Kind `yaml:"easing"`
}

type MixerDoc struct {
	Name         string     `yaml:"name"`
	SampleRate   int        `yaml:"sampleRate"`
	BitDepth     int        `yaml:"bitDepth"`
	MasterVolume float64    `yaml:"masterVolume"`
	MasterMuted  bool       `yaml:"masterMuted"`
	Tracks       []TrackDoc `yaml:"tracks,omitempty"`
}

type TrackDoc struct {
	Name      string  `yaml:"name"`
	Source    string  `yaml:"source"`
	StartTime float64 `yaml:"startTime"`
	Volume    float64 `yaml:"volume"`
	Muted     bool    `yaml:"muted"`
	Pan       float64 `yaml:"pan"`
}

type ExportDoc struct {
	FPS     int    `yaml:"fps"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Quality int    `yaml:"quality"`
	Codec   string `yaml:"codec,omitempty"`
}

// Snapshot captures the current session state into a document. Nil engine or
// mixer sections are simply omitted.
func Snapshot(state *timeline.State, engine *keyframe.Engine, mixer *audio.Mixer) (Document, error) {
	trimStart, trimEnd := state.Trim()
	doc := Document{
		Version: DocumentVersion,
		Timeline: TimelineDoc{
			Duration:  state.Duration(),
			Playhead:  state.Playhead(),
			TrimStart: trimStart,
			TrimEnd:   trimEnd,
			AudioBed:  state.AudioBed(),
		},
		Overlays: state.Overlays(),
	}

	for _, el := range state.Elements() {
		doc.Elements = append(doc.Elements, elementToDoc(el))
	}

	if engine != nil {
		data, err := engine.Export()
		if err != nil {
			return Document{}, merry.Wrap(ErrValidation, merry.WithCause(err))
		}
		var exported keyframe.Document
		if err := json.Unmarshal(data, &exported); err != nil {
			return Document{}, merry.Wrap(ErrValidation, merry.WithCause(err))
		}
		for _, entry := range exported.Animations {
			anim := AnimationDoc{ID: entry.ID, Name: entry.Property.Name}
			for _, kf := range entry.Property.Keyframes {
				anim.Keyframes = append(anim.Keyframes, KeyframeDoc{
					ID:     kf.ID,
					Time:   kf.Time,
					Value:  kf.Value,
					Easing: kf.Easing,
				})
			}
			doc.Animations = append(doc.Animations, anim)
		}
	}

	if mixer != nil {
		mixerDoc := &MixerDoc{
			Name:         mixer.Name,
			SampleRate:   mixer.SampleRate,
			BitDepth:     mixer.BitDepth.Value,
			MasterVolume: mixer.MasterVolume,
			MasterMuted:  mixer.MasterMuted,
		}
		for _, track := range mixer.Tracks() {
			mixerDoc.Tracks = append(mixerDoc.Tracks, TrackDoc{
				Name:      track.Name,
				Source:    track.SourcePath,
				StartTime: track.StartTime,
				Volume:    track.Volume,
				Muted:     track.Muted,
				Pan:       track.Pan,
			})
		}
		doc.Mixer = mixerDoc
	}
	return doc, nil
}

func elementToDoc(el timeline.Element) ElementDoc {
	start, end := el.Window()
	doc := ElementDoc{
		Kind:       el.Kind().Value,
		ID:         el.ID(),
		Start:      start,
		End:        end,
		Properties: el.Props(),
	}
	switch v := el.(type) {
	case timeline.Video:
		doc.Source = v.SourcePath
	case timeline.Image:
		doc.Source = v.SourcePath
	case timeline.Audio:
		doc.Source = v.SourcePath
	case timeline.Sticker:
		doc.Source = v.SourcePath
	case timeline.Text:
		doc.Text = v.Text
	case timeline.Caption:
		doc.Text = v.Text
	}
	return doc
}

func (d ElementDoc) toElement() (timeline.Element, error) {
	kind := timeline.Kinds.Parse(d.Kind)
	if kind == nil {
		return nil, merry.Wrap(ErrValidation, merry.AppendMessagef("unknown element kind %q", d.Kind))
	}
	base := timeline.Base{
		ClipID:     d.ID,
		Start:      d.Start,
		End:        d.End,
		Properties: d.Properties,
	}
	switch *kind {
	case timeline.KindVideo:
		return timeline.Video{Base: base, SourcePath: d.Source}, nil
	case timeline.KindImage:
		return timeline.Image{Base: base, SourcePath: d.Source}, nil
	case timeline.KindText:
		return timeline.Text{Base: base, Text: d.Text}, nil
	case timeline.KindAudio:
		return timeline.Audio{Base: base, SourcePath: d.Source}, nil
	case timeline.KindSticker:
		return timeline.Sticker{Base: base, SourcePath: d.Source}, nil
	default:
		return timeline.Caption{Base: base, Text: d.Text}, nil
	}
}

// Validate checks the document shape before any of it is applied.
func (d Document) Validate() error {
	if d.Version == "" {
		return merry.Wrap(ErrValidation, merry.AppendMessage("missing version"))
	}
	if d.Timeline.Duration <= 0 {
		return merry.Wrap(ErrValidation, merry.AppendMessage("timeline duration must be positive"))
	}
	// Overlays and elements restore verbatim, so their windows have to be
	// checked here; a clip outside the timeline would make later clamped
	// drags produce negative times.
	for _, clip := range d.Overlays {
		if clip.Start < 0 || clip.End > d.Timeline.Duration || clip.End-clip.Start < timeline.MinGap {
			return merry.Wrap(ErrValidation,
				merry.AppendMessagef("overlay %q window [%g, %g] out of bounds", clip.ID, clip.Start, clip.End))
		}
	}
	for _, el := range d.Elements {
		if timeline.Kinds.Parse(el.Kind) == nil {
			return merry.Wrap(ErrValidation, merry.AppendMessagef("unknown element kind %q", el.Kind))
		}
		if el.ID == "" {
			return merry.Wrap(ErrValidation, merry.AppendMessage("element without id"))
		}
		if el.Start < 0 || el.End > d.Timeline.Duration || el.End <= el.Start {
			return merry.Wrap(ErrValidation,
				merry.AppendMessagef("element %q window [%g, %g] out of bounds", el.ID, el.Start, el.End))
		}
	}
	if d.Mixer != nil && audio.BitDepths.Parse(d.Mixer.BitDepth) == nil {
		return merry.Wrap(ErrValidation, merry.AppendMessagef("unsupported bit depth %d", d.Mixer.BitDepth))
	}
	return nil
}

// Save writes the document as YAML.
func Save(path string, doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return merry.Wrap(err)
	}
	return merry.Wrap(os.WriteFile(path, data, 0644))
}

// Load reads and validates a project document without applying it.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, merry.Wrap(err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, merry.Wrap(ErrValidation, merry.WithCause(err))
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// RestoreTimeline rebuilds the timeline state from a validated document.
func RestoreTimeline(doc Document) (*timeline.State, error) {
	state := timeline.NewState(doc.Timeline.Duration)
	state.SetTrim(doc.Timeline.TrimStart, doc.Timeline.TrimEnd)
	state.SetPlayhead(doc.Timeline.Playhead)
	if bed := doc.Timeline.AudioBed; bed != nil {
		state.SetAudioBed(bed.Start, bed.End)
	}
	for _, clip := range doc.Overlays {
		state.RestoreOverlay(clip)
	}
	for _, elDoc := range doc.Elements {
		el, err := elDoc.toElement()
		if err != nil {
			return nil, err
		}
		state.RestoreElement(el)
	}
	return state, nil
}

// RestoreAnimations rebuilds the keyframe engine by feeding the persisted
// animations through the engine's own import path, preserving keyframe ids.
func RestoreAnimations(doc Document) (*keyframe.Engine, error) {
	engine := keyframe.NewEngine()
	if len(doc.Animations) == 0 {
		return engine, nil
	}

	imported := keyframe.Document{Version: keyframe.DocumentVersion}
	for _, anim := range doc.Animations {
		prop := keyframe.AnimatedProperty{ID: anim.ID, Name: anim.Name}
		for _, kf := range anim.Keyframes {
			prop.Keyframes = append(prop.Keyframes, keyframe.Keyframe{
				ID:     kf.ID,
				Time:   kf.Time,
				Value:  kf.Value,
				Easing: kf.Easing,
			})
		}
		imported.Animations = append(imported.Animations, keyframe.DocumentEntry{ID: anim.ID, Property: prop})
	}

	data, err := json.Marshal(imported)
	if err != nil {
		return nil, merry.Wrap(ErrValidation, merry.WithCause(err))
	}
	if err := engine.Import(data); err != nil {
		return nil, err
	}
	return engine, nil
}

// RestoreMixer rebuilds the mixer, decoding every track source. A missing or
// undecodable source fails the whole restore.
func RestoreMixer(doc Document, store *audio.Store) (*audio.Mixer, error) {
	if doc.Mixer == nil {
		return nil, nil
	}
	depth := audio.BitDepths.Parse(doc.Mixer.BitDepth)
	if depth == nil {
		return nil, merry.Wrap(ErrValidation, merry.AppendMessagef("unsupported bit depth %d", doc.Mixer.BitDepth))
	}

	mixer := audio.NewMixer(doc.Mixer.Name, doc.Mixer.SampleRate, *depth, store)
	mixer.MasterVolume = doc.Mixer.MasterVolume
	mixer.MasterMuted = doc.Mixer.MasterMuted
	for _, trackDoc := range doc.Mixer.Tracks {
		track, err := mixer.CreateTrack(trackDoc.Source, trackDoc.Name, trackDoc.StartTime)
		if err != nil {
			return nil, err
		}
		track.Volume = trackDoc.Volume
		track.Muted = trackDoc.Muted
		track.Pan = trackDoc.Pan
	}
	return mixer, nil
}
