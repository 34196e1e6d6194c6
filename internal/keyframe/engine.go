package keyframe

import (
	"sort"
	"sync"

	"github.com/ansel1/merry/v2"
	"github.com/google/uuid"
	"github.com/renderlab/clipengine/internal/easing"
)

var (
	ErrPropertyNotFound = merry.Sentinel("animated property not found")
	ErrKeyframeNotFound = merry.Sentinel("keyframe not found")
)

// Keyframe anchors an animated property's value at one instant.
type Keyframe struct {
	ID     string      `json:"id"`
	Time   float64     `json:"time"`
	Value  float64     `json:"value"`
	Easing easing.Kind `json:"easing"`
}

// AnimatedProperty holds the time-ordered keyframes of one animated value,
// typically keyed to a visual element + property name pair.
type AnimatedProperty struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Keyframes []Keyframe `json:"keyframes"`
}

// Update describes a partial keyframe edit. Nil fields are left untouched.
type Update struct {
	Time   *float64
	Value  *float64
	Easing *easing.Kind
}

// Engine is the keyframe animation registry for one editing session.
// Keyframe slices are copy-on-write: every mutation installs a freshly sorted
// slice, so a snapshot handed out earlier never changes underneath a reader.
type Engine struct {
	mu         sync.RWMutex
	properties map[string]*AnimatedProperty
}

func NewEngine() *Engine {
	return &Engine{
		properties: map[string]*AnimatedProperty{},
	}
}

// CreateAnimation registers an empty animated property. Registering an id
// that already exists is a no-op and returns the existing property, so
// repeated editor init never resets keyframes.
func (e *Engine) CreateAnimation(id, name string) *AnimatedProperty {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.properties[id]; ok {
		return existing
	}
	prop := &AnimatedProperty{ID: id, Name: name}
	e.properties[id] = prop
	return prop
}

// AddKeyframe appends a keyframe and keeps the property sorted ascending by
// time. Ties keep insertion order. Returns the generated keyframe id.
func (e *Engine) AddKeyframe(id string, time, value float64, kind easing.Kind) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prop, ok := e.properties[id]
	if !ok {
		return "", merry.Wrap(ErrPropertyNotFound, merry.AppendMessagef("%q", id))
	}

	kf := Keyframe{
		ID:     uuid.NewString(),
		Time:   time,
		Value:  value,
		Easing: kind,
	}
	next := make([]Keyframe, 0, len(prop.Keyframes)+1)
	next = append(next, prop.Keyframes...)
	next = append(next, kf)
	sortKeyframes(next)
	prop.Keyframes = next
	return kf.ID, nil
}

// UpdateKeyframe applies a partial edit. The property is re-sorted only when
// the time changed.
func (e *Engine) UpdateKeyframe(id, keyframeID string, update Update) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prop, ok := e.properties[id]
	if !ok {
		return merry.Wrap(ErrPropertyNotFound, merry.AppendMessagef("%q", id))
	}

	idx := -1
	for i := range prop.Keyframes {
		if prop.Keyframes[i].ID == keyframeID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return merry.Wrap(ErrKeyframeNotFound, merry.AppendMessagef("%q", keyframeID))
	}

	next := make([]Keyframe, len(prop.Keyframes))
	copy(next, prop.Keyframes)

	timeChanged := false
	if update.Time != nil && *update.Time != next[idx].Time {
		next[idx].Time = *update.Time
		timeChanged = true
	}
	if update.Value != nil {
		next[idx].Value = *update.Value
	}
	if update.Easing != nil {
		next[idx].Easing = *update.Easing
	}
	if timeChanged {
		sortKeyframes(next)
	}
	prop.Keyframes = next
	return nil
}

func (e *Engine) RemoveKeyframe(id, keyframeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prop, ok := e.properties[id]
	if !ok {
		return merry.Wrap(ErrPropertyNotFound, merry.AppendMessagef("%q", id))
	}

	next := make([]Keyframe, 0, len(prop.Keyframes))
	found := false
	for _, kf := range prop.Keyframes {
		if kf.ID == keyframeID {
			found = true
			continue
		}
		next = append(next, kf)
	}
	if !found {
		return merry.Wrap(ErrKeyframeNotFound, merry.AppendMessagef("%q", keyframeID))
	}
	prop.Keyframes = next
	return nil
}

// Keyframes returns the current keyframe snapshot of a property, sorted
// ascending by time. The returned slice is never mutated afterwards.
func (e *Engine) Keyframes(id string) ([]Keyframe, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	prop, ok := e.properties[id]
	if !ok {
		return nil, merry.Wrap(ErrPropertyNotFound, merry.AppendMessagef("%q", id))
	}
	return prop.Keyframes, nil
}

// GetValueAtTime resolves the animated value at time t.
//
// Zero keyframes resolve to 0. Outside the keyframed range the nearest
// keyframe's value holds (no extrapolation). Between two keyframes the
// earlier keyframe's easing governs the transition into the later one.
func (e *Engine) GetValueAtTime(id string, t float64) float64 {
	e.mu.RLock()
	prop, ok := e.properties[id]
	var kfs []Keyframe
	if ok {
		kfs = prop.Keyframes
	}
	e.mu.RUnlock()

	if len(kfs) == 0 {
		return 0
	}
	if t <= kfs[0].Time {
		return kfs[0].Value
	}
	if t >= kfs[len(kfs)-1].Time {
		return kfs[len(kfs)-1].Value
	}

	// a: last keyframe with time <= t, b: the one after it.
	a := 0
	for i := range kfs {
		if kfs[i].Time <= t {
			a = i
		} else {
			break
		}
	}
	b := a + 1
	return easing.Interpolate(kfs[a].Value, kfs[b].Value, kfs[a].Time, kfs[b].Time, t, kfs[a].Easing)
}

func sortKeyframes(kfs []Keyframe) {
	sort.SliceStable(kfs, func(i, j int) bool {
		return kfs[i].Time < kfs[j].Time
	})
}
