package audio

import (
	"context"
	"io"
	"math"

	"github.com/ansel1/merry/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var ErrNothingToMix = merry.Sentinel("nothing to mix")

// mixChunkFrames bounds how long a render runs between cancellation checks.
const mixChunkFrames = 8192

// RenderedBuffer is one offline mix result: interleaved stereo samples in
// normalized float space, clamped only when encoded.
type RenderedBuffer struct {
	Samples    []float64
	SampleRate int
	BitDepth   BitDepth
}

// Frames is the stereo frame count.
func (b *RenderedBuffer) Frames() int { return len(b.Samples) / 2 }

// Mixer owns a set of tracks and renders them down to one stereo buffer.
// One editing session owns a mixer exclusively; rendering is offline and
// deterministic: identical inputs produce bit-identical output.
type Mixer struct {
	ID           string
	Name         string
	MasterVolume float64
	MasterMuted  bool
	SampleRate   int
	BitDepth     BitDepth

	store  *Store
	tracks []*Track
}

func NewMixer(name string, sampleRate int, depth BitDepth, store *Store) *Mixer {
	if store == nil {
		store = NewStore()
	}
	return &Mixer{
		ID:           uuid.NewString(),
		Name:         name,
		MasterVolume: 1,
		SampleRate:   sampleRate,
		BitDepth:     depth,
		store:        store,
	}
}

// CreateTrack decodes the source to determine its duration and adds it to
// the mix. A source that is not valid audio fails with ErrDecode.
func (m *Mixer) CreateTrack(sourcePath, name string, startTime float64) (*Track, error) {
	clip, err := m.store.Load(sourcePath)
	if err != nil {
		return nil, err
	}
	track := NewTrack(clip, name, startTime)
	track.SourcePath = sourcePath
	m.addTrack(track)
	return track, nil
}

// AddTrack registers an externally built track (e.g. in tests).
func (m *Mixer) AddTrack(track *Track) { m.addTrack(track) }

func (m *Mixer) addTrack(track *Track) {
	next := make([]*Track, 0, len(m.tracks)+1)
	next = append(next, m.tracks...)
	next = append(next, track)
	m.tracks = next
}

// RemoveTrack drops a track by id.
func (m *Mixer) RemoveTrack(id string) {
	m.tracks = lo.Filter(m.tracks, func(t *Track, _ int) bool {
		return t.ID != id
	})
}

// Tracks returns the current track list snapshot.
func (m *Mixer) Tracks() []*Track {
	out := make([]*Track, len(m.tracks))
	copy(out, m.tracks)
	return out
}

// MixTracks renders all non-muted tracks into one stereo buffer.
//
// Muted tracks are skipped entirely; they contribute neither samples nor
// output length. With no audible tracks the result is ErrNothingToMix, a
// deliberate signal rather than a zero-length edge case. Cancellation is
// honored between sample chunks and surfaces as the context's error.
func (m *Mixer) MixTracks(ctx context.Context) (*RenderedBuffer, error) {
	active := lo.Filter(m.tracks, func(t *Track, _ int) bool {
		return !t.Muted
	})
	if len(active) == 0 {
		return nil, merry.Wrap(ErrNothingToMix)
	}

	end := 0.0
	for _, t := range active {
		if tEnd := t.StartTime + t.Duration(); tEnd > end {
			end = tEnd
		}
	}
	frames := int(math.Ceil(float64(m.SampleRate) * end))

	out := &RenderedBuffer{
		Samples:    make([]float64, frames*2),
		SampleRate: m.SampleRate,
		BitDepth:   m.BitDepth,
	}
	if m.MasterMuted {
		return out, nil
	}

	for _, t := range active {
		if err := m.renderTrack(ctx, t, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// renderTrack accumulates one track into the output buffer: gain-scaled by
// track and master volume, panned equal-power, offset so the first sample
// lands at StartTime*SampleRate.
func (m *Mixer) renderTrack(ctx context.Context, t *Track, out *RenderedBuffer) error {
	clip := t.Clip()
	gain := t.Volume * m.MasterVolume
	gainL, gainR := panGains(t.Pan)

	offset := int(math.Round(t.StartTime * float64(m.SampleRate)))
	trackFrames := int(math.Ceil(float64(clip.Frames()) * float64(m.SampleRate) / float64(clip.SampleRate)))

	for chunk := 0; chunk < trackFrames; chunk += mixChunkFrames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		limit := chunk + mixChunkFrames
		if limit > trackFrames {
			limit = trackFrames
		}
		for i := chunk; i < limit; i++ {
			dst := offset + i
			if dst < 0 || dst >= out.Frames() {
				continue
			}
			left, right := clip.sampleAt(i, m.SampleRate)
			out.Samples[dst*2] += left * gain * gainL
			out.Samples[dst*2+1] += right * gain * gainR
		}
	}
	return nil
}

// sampleAt resolves the stereo sample pair for output frame i at the target
// rate, linearly interpolating when the clip was recorded at another rate.
func (c *Clip) sampleAt(frame, targetRate int) (float64, float64) {
	pos := float64(frame) * float64(c.SampleRate) / float64(targetRate)
	i0 := int(pos)
	i1 := i0 + 1
	frac := pos - float64(i0)

	last := c.Frames() - 1
	if i0 > last {
		return 0, 0
	}
	if i1 > last {
		i1 = last
	}

	if c.Channels == 1 {
		v := c.Samples[i0] + (c.Samples[i1]-c.Samples[i0])*frac
		return v, v
	}
	l := c.Samples[i0*2] + (c.Samples[i1*2]-c.Samples[i0*2])*frac
	r := c.Samples[i0*2+1] + (c.Samples[i1*2+1]-c.Samples[i0*2+1])*frac
	return l, r
}

// panGains is the equal-power stereo pan law: the standard stereo panner
// curve, constant perceived loudness across the field.
func panGains(pan float64) (float64, float64) {
	if pan < -1 {
		pan = -1
	}
	if pan > 1 {
		pan = 1
	}
	x := (pan + 1) / 2 * (math.Pi / 2)
	return math.Cos(x), math.Sin(x)
}

// RenderWAV mixes and encodes in one step.
func (m *Mixer) RenderWAV(ctx context.Context, w io.Writer) error {
	buf, err := m.MixTracks(ctx)
	if err != nil {
		return err
	}
	return EncodeWAV(w, buf.Samples, buf.SampleRate, 2, buf.BitDepth)
}
