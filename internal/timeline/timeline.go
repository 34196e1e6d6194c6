package timeline

import (
	"math"

	"github.com/google/uuid"
	"github.com/orsinium-labs/enum"
	"github.com/samber/lo"
)

// MinGap is the smallest span a trim, overlay or audio bed may be dragged
// down to, matching the drag resolution of the editor UI.
const MinGap = 0.1

// ChangeKind names what part of the state a mutation touched.
type ChangeKind enum.Member[string]

var (
	ChangePlayhead = ChangeKind{Value: "playhead"}
	ChangeTrim     = ChangeKind{Value: "trim"}
	ChangeOverlay  = ChangeKind{Value: "overlay"}
	ChangeAudioBed = ChangeKind{Value: "audio-bed"}
	ChangeElement  = ChangeKind{Value: "element"}
	ChangeKinds    = enum.New(ChangePlayhead, ChangeTrim, ChangeOverlay, ChangeAudioBed, ChangeElement)
)

// Change is delivered to subscribers after every committed mutation.
type Change struct {
	Kind    ChangeKind
	Version uint64
}

// OverlayClip is a secondary timed element (text) positioned independently of
// the primary video track.
type OverlayClip struct {
	ID    string  `yaml:"id"`
	Text  string  `yaml:"text"`
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	Color string  `yaml:"color"`
}

// AudioBed is the optional background audio window.
type AudioBed struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// Defaults holds the type-specific default durations for newly inserted
// elements, in seconds.
type Defaults struct {
	Text    float64
	Audio   float64
	Sticker float64
	Caption float64
}

func DefaultDurations() Defaults {
	return Defaults{
		Text:    5,
		Audio:   10,
		Sticker: 5,
		Caption: 3,
	}
}

// State is the authoritative timing document of one editing session.
//
// All mutations clamp their inputs instead of failing: a drag callback firing
// on every pointer move must never observe an invariant violation, so out of
// range values are normal input here, not errors. Every mutation bumps the
// version and notifies subscribers.
type State struct {
	duration  float64
	playhead  float64
	trimStart float64
	trimEnd   float64
	overlays  []OverlayClip
	elements  []Element
	audioBed  *AudioBed
	defaults  Defaults
	version   uint64
	observers []func(Change)
}

func NewState(duration float64) *State {
	if duration <= 0 {
		duration = MinGap
	}
	return &State{
		duration: duration,
		trimEnd:  duration,
		defaults: DefaultDurations(),
	}
}

// SetDefaults overrides the default durations for inserted elements.
func (s *State) SetDefaults(d Defaults) { s.defaults = d }

func (s *State) Duration() float64          { return s.duration }
func (s *State) Playhead() float64          { return s.playhead }
func (s *State) Trim() (float64, float64)   { return s.trimStart, s.trimEnd }
func (s *State) AudioBed() *AudioBed        { return s.audioBed }
func (s *State) Version() uint64            { return s.version }

// Subscribe registers an observer for committed mutations. Observers are
// invoked synchronously, in registration order.
func (s *State) Subscribe(fn func(Change)) {
	s.observers = append(s.observers, fn)
}

func (s *State) commit(kind ChangeKind) {
	s.version++
	for _, fn := range s.observers {
		fn(Change{Kind: kind, Version: s.version})
	}
}

// SetPlayhead moves the time cursor, clamped to [0, duration].
func (s *State) SetPlayhead(t float64) {
	s.playhead = clamp(t, 0, s.duration)
	s.commit(ChangePlayhead)
}

// SetTrim applies proposed in/out points for the primary video. Both edges
// are clamped into [0, duration]; when the proposal violates the minimum gap
// the stationary edge wins and the moving edge is pushed back.
func (s *State) SetTrim(start, end float64) {
	s.trimStart, s.trimEnd = s.clampSpan(start, end, s.trimStart, s.trimEnd)
	s.commit(ChangeTrim)
}

// SetAudioBed positions the background audio window with the same gap rule
// as trim, independent of trim and overlays.
func (s *State) SetAudioBed(start, end float64) {
	var curStart, curEnd float64
	if s.audioBed != nil {
		curStart, curEnd = s.audioBed.Start, s.audioBed.End
	} else {
		curStart, curEnd = clamp(start, 0, s.duration), clamp(end, 0, s.duration)
	}
	newStart, newEnd := s.clampSpan(start, end, curStart, curEnd)
	s.audioBed = &AudioBed{Start: newStart, End: newEnd}
	s.commit(ChangeAudioBed)
}

// ClearAudioBed removes the background audio window.
func (s *State) ClearAudioBed() {
	s.audioBed = nil
	s.commit(ChangeAudioBed)
}

// AddOverlay inserts a text overlay clip, clamped into the timeline, and
// returns its id. Overlaps with existing overlays are allowed; insertion
// order is the render order.
func (s *State) AddOverlay(text string, start, end float64, color string) string {
	start = clamp(start, 0, s.duration)
	end = clamp(end, 0, s.duration)
	if end-start < MinGap {
		end = start + MinGap
		if end > s.duration {
			end = s.duration
			start = end - MinGap
		}
	}
	clip := OverlayClip{
		ID:    uuid.NewString(),
		Text:  text,
		Start: start,
		End:   end,
		Color: color,
	}
	s.overlays = append(s.overlays, clip)
	s.commit(ChangeOverlay)
	return clip.ID
}

// RestoreOverlay reinstalls a persisted overlay clip verbatim, keeping its
// id. Project loading uses this; interactive edits go through AddOverlay.
func (s *State) RestoreOverlay(clip OverlayClip) {
	s.overlays = append(s.overlays, clip)
	s.commit(ChangeOverlay)
}

// Overlays returns a snapshot of the overlay clips in insertion order.
func (s *State) Overlays() []OverlayClip {
	out := make([]OverlayClip, len(s.overlays))
	copy(out, s.overlays)
	return out
}

// MoveOverlay shifts a clip to a new start, preserving its length. The clip
// never extends past the timeline: a too-late start is shifted down.
func (s *State) MoveOverlay(id string, newStart float64) {
	idx := s.overlayIndex(id)
	if idx == -1 {
		return
	}
	clip := s.overlays[idx]
	length := clip.End - clip.Start
	newStart = clamp(newStart, 0, s.duration-length)
	clip.Start = newStart
	clip.End = newStart + length
	s.overlays[idx] = clip
	s.commit(ChangeOverlay)
}

// Edge selects which side of a clip a resize drag grabs.
type Edge enum.Member[string]

var (
	EdgeLeft  = Edge{Value: "left"}
	EdgeRight = Edge{Value: "right"}
	Edges     = enum.New(EdgeLeft, EdgeRight)
)

// ResizeOverlay drags one edge of a clip to a new time with the same minimum
// gap rule as trim: the stationary edge wins.
func (s *State) ResizeOverlay(id string, edge Edge, newTime float64) {
	idx := s.overlayIndex(id)
	if idx == -1 {
		return
	}
	clip := s.overlays[idx]
	switch edge {
	case EdgeLeft:
		clip.Start = clamp(newTime, 0, clip.End-MinGap)
	case EdgeRight:
		clip.End = clamp(newTime, clip.Start+MinGap, s.duration)
	}
	s.overlays[idx] = clip
	s.commit(ChangeOverlay)
}

func (s *State) overlayIndex(id string) int {
	_, idx, _ := lo.FindIndexOf(s.overlays, func(c OverlayClip) bool {
		return c.ID == id
	})
	return idx
}

// AddVideoAt inserts a video element anchored at t. Video length comes from
// the caller (the decoded source duration), not from a default.
func (s *State) AddVideoAt(t, length float64, sourcePath string) string {
	start, end := s.anchorWindow(t, length)
	return s.addElement(Video{
		Base:       newBase(start, end),
		SourcePath: sourcePath,
	})
}

// AddImageAt inserts an image element anchored at t with a caller-provided
// display length.
func (s *State) AddImageAt(t, length float64, sourcePath string) string {
	start, end := s.anchorWindow(t, length)
	return s.addElement(Image{
		Base:       newBase(start, end),
		SourcePath: sourcePath,
	})
}

// AddTextAt inserts a text element anchored at t with the default text
// duration.
func (s *State) AddTextAt(t float64, text string) string {
	start, end := s.anchorWindow(t, s.defaults.Text)
	return s.addElement(Text{
		Base: newBase(start, end),
		Text: text,
	})
}

// AddAudioAt inserts an audio element anchored at t with the default audio
// duration.
func (s *State) AddAudioAt(t float64, sourcePath string) string {
	start, end := s.anchorWindow(t, s.defaults.Audio)
	return s.addElement(Audio{
		Base:       newBase(start, end),
		SourcePath: sourcePath,
	})
}

// AddStickerAt inserts a sticker element anchored at t.
func (s *State) AddStickerAt(t float64, sourcePath string) string {
	start, end := s.anchorWindow(t, s.defaults.Sticker)
	return s.addElement(Sticker{
		Base:       newBase(start, end),
		SourcePath: sourcePath,
	})
}

// AddCaptionAt inserts a caption element anchored at t.
func (s *State) AddCaptionAt(t float64, text string) string {
	start, end := s.anchorWindow(t, s.defaults.Caption)
	return s.addElement(Caption{
		Base: newBase(start, end),
		Text: text,
	})
}

func newBase(start, end float64) Base {
	return Base{
		ClipID:     uuid.NewString(),
		Start:      start,
		End:        end,
		Properties: DefaultProperties(),
	}
}

// RestoreElement reinstalls a persisted element verbatim, keeping its id so
// animations keyed to it keep resolving.
func (s *State) RestoreElement(el Element) {
	s.addElement(el)
}

// Elements returns a snapshot of the compositor input list in insertion
// order (painter's algorithm: later entries draw on top).
func (s *State) Elements() []Element {
	out := make([]Element, len(s.elements))
	copy(out, s.elements)
	return out
}

// ElementsAt returns the elements whose window contains t, preserving
// insertion order.
func (s *State) ElementsAt(t float64) []Element {
	return lo.Filter(s.elements, func(el Element, _ int) bool {
		return VisibleAt(el, t)
	})
}

func (s *State) anchorWindow(t, length float64) (float64, float64) {
	t = clamp(t, 0, s.duration)
	end := t + length
	if end > s.duration {
		end = s.duration
		t = math.Max(0, end-length)
	}
	return t, end
}

func (s *State) addElement(el Element) string {
	s.elements = append(s.elements, el)
	s.commit(ChangeElement)
	return el.ID()
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// clampSpan resolves a proposed (start, end) drag against the current span.
// Both edges are clamped into the timeline first; if the minimum gap is then
// violated, the edge that did not move wins and the moving edge is pushed to
// otherEdge -/+ MinGap.
func (s *State) clampSpan(start, end, curStart, curEnd float64) (float64, float64) {
	start = clamp(start, 0, s.duration)
	end = clamp(end, 0, s.duration)

	if end-start >= MinGap {
		return start, end
	}

	startMoved := start != curStart
	endMoved := end != curEnd

	switch {
	case endMoved && !startMoved:
		end = start + MinGap
		if end > s.duration {
			end = s.duration
			start = end - MinGap
		}
	default:
		// Left edge moved (or both): the right edge stays put.
		start = end - MinGap
		if start < 0 {
			start = 0
			end = MinGap
		}
	}
	return start, end
}
