package audio_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/renderlab/clipengine/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toneClip(rate, frames int) *audio.Clip {
	clip := &audio.Clip{SampleRate: rate, Channels: 1, Samples: make([]float64, frames)}
	for i := range clip.Samples {
		clip.Samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
	}
	return clip
}

func TestMixerSilenceOnMute(t *testing.T) {
	clipA := toneClip(48000, 4800)
	clipB := toneClip(48000, 9600)

	two := audio.NewMixer("two", 48000, audio.Depth16, nil)
	two.AddTrack(audio.NewTrack(clipA, "a", 0))
	b := audio.NewTrack(clipB, "b", 0.5)
	b.Muted = true
	two.AddTrack(b)

	one := audio.NewMixer("one", 48000, audio.Depth16, nil)
	one.AddTrack(audio.NewTrack(clipA, "a", 0))

	bufTwo, err := two.MixTracks(context.Background())
	require.NoError(t, err)
	bufOne, err := one.MixTracks(context.Background())
	require.NoError(t, err)

	// Muted tracks contribute neither samples nor output length.
	assert.Equal(t, bufOne.Samples, bufTwo.Samples)
}

func TestMixerDeterminism(t *testing.T) {
	mixer := audio.NewMixer("m", 48000, audio.Depth16, nil)
	a := audio.NewTrack(toneClip(48000, 4800), "a", 0)
	a.Pan = -0.3
	mixer.AddTrack(a)
	b := audio.NewTrack(toneClip(44100, 4410), "b", 0.05)
	b.Volume = 0.7
	b.Pan = 0.6
	mixer.AddTrack(b)

	first, err := mixer.MixTracks(context.Background())
	require.NoError(t, err)
	second, err := mixer.MixTracks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Samples, second.Samples)
}

func TestMixerNothingToMix(t *testing.T) {
	mixer := audio.NewMixer("m", 48000, audio.Depth16, nil)
	_, err := mixer.MixTracks(context.Background())
	assert.ErrorIs(t, err, audio.ErrNothingToMix)

	muted := audio.NewTrack(toneClip(48000, 480), "m", 0)
	muted.Muted = true
	mixer.AddTrack(muted)
	_, err = mixer.MixTracks(context.Background())
	assert.ErrorIs(t, err, audio.ErrNothingToMix)
}

func TestMixerOutputLength(t *testing.T) {
	mixer := audio.NewMixer("m", 48000, audio.Depth16, nil)
	mixer.AddTrack(audio.NewTrack(toneClip(48000, 48000), "a", 1.5)) // 1s clip at offset 1.5s

	buf, err := mixer.MixTracks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int(math.Ceil(48000*2.5)), buf.Frames())
}

func TestMixerStartOffsetPlacesFirstSample(t *testing.T) {
	clip := &audio.Clip{SampleRate: 48000, Channels: 1, Samples: []float64{0.5, 0.5, 0.5}}
	mixer := audio.NewMixer("m", 48000, audio.Depth16, nil)
	track := audio.NewTrack(clip, "a", 0.5)
	track.Pan = -1 // full left: right channel stays silent
	mixer.AddTrack(track)

	buf, err := mixer.MixTracks(context.Background())
	require.NoError(t, err)

	offset := int(0.5 * 48000)
	for i := 0; i < offset; i++ {
		assert.Zero(t, buf.Samples[i*2], "left sample %d before the offset", i)
	}
	assert.NotZero(t, buf.Samples[offset*2])
	assert.InDelta(t, 0, buf.Samples[offset*2+1], 1e-12, "panned hard left")
}

func TestMixerVolumeAndMasterVolume(t *testing.T) {
	clip := &audio.Clip{SampleRate: 48000, Channels: 1, Samples: []float64{1}}

	mixer := audio.NewMixer("m", 48000, audio.Depth16, nil)
	track := audio.NewTrack(clip, "a", 0)
	track.Volume = 0.5
	mixer.AddTrack(track)
	mixer.MasterVolume = 0.5

	buf, err := mixer.MixTracks(context.Background())
	require.NoError(t, err)

	// 1.0 * 0.5 * 0.5, then the equal-power center pan gain of cos(π/4).
	expected := 0.25 * math.Cos(math.Pi/4)
	assert.InDelta(t, expected, buf.Samples[0], 1e-12)
}

func TestMixerMasterMutedRendersSilence(t *testing.T) {
	mixer := audio.NewMixer("m", 48000, audio.Depth16, nil)
	mixer.AddTrack(audio.NewTrack(toneClip(48000, 480), "a", 0))
	mixer.MasterMuted = true

	buf, err := mixer.MixTracks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 480, buf.Frames())
	for _, s := range buf.Samples {
		assert.Zero(t, s)
	}
}

func TestMixerCancellation(t *testing.T) {
	mixer := audio.NewMixer("m", 48000, audio.Depth16, nil)
	mixer.AddTrack(audio.NewTrack(toneClip(48000, 48000*30), "long", 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mixer.MixTracks(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateTrackDecodeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not audio data"), 0644))

	mixer := audio.NewMixer("m", 48000, audio.Depth16, nil)
	_, err := mixer.CreateTrack(path, "broken", 0)
	assert.ErrorIs(t, err, audio.ErrDecode)
	assert.Empty(t, mixer.Tracks())
}

func TestStoreCachesDecodedClips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	f, err := os.Create(path)
	require.NoError(t, err)
	clip := toneClip(48000, 480)
	stereo := make([]float64, 0, len(clip.Samples)*2)
	for _, s := range clip.Samples {
		stereo = append(stereo, s, s)
	}
	require.NoError(t, audio.EncodeWAV(f, stereo, 48000, 2, audio.Depth16))
	require.NoError(t, f.Close())

	store := audio.NewStore()
	first, err := store.Load(path)
	require.NoError(t, err)

	// Deleting the file doesn't matter once cached.
	require.NoError(t, os.Remove(path))
	second, err := store.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
