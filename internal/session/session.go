// Package session wires one editing session together: the timeline, the
// keyframe engine, the audio mixer and the exporter are owned per session,
// never shared through globals, so concurrent sessions stay independent.
package session

import (
	"context"
	"errors"
	"os"

	"github.com/ansel1/merry/v2"
	"github.com/google/uuid"
	"github.com/renderlab/clipengine/internal/audio"
	"github.com/renderlab/clipengine/internal/colorfx"
	"github.com/renderlab/clipengine/internal/compositor"
	"github.com/renderlab/clipengine/internal/encoder"
	"github.com/renderlab/clipengine/internal/keyframe"
	"github.com/renderlab/clipengine/internal/project"
	"github.com/renderlab/clipengine/internal/source"
	"github.com/renderlab/clipengine/internal/timeline"
	"github.com/rs/zerolog"
)

// Config sets up a fresh session.
type Config struct {
	Duration   float64
	SampleRate int
	BitDepth   audio.BitDepth
}

// FrameEncoder starts an encoding sink for one export. The production
// implementation shells out to ffmpeg; tests substitute their own.
type FrameEncoder interface {
	Start(ctx context.Context, settings encoder.Settings, outputPath string) (encoder.FrameSink, error)
}

// Session is one editing session. All components are owned by the session.
type Session struct {
	ID         string
	Log        zerolog.Logger
	Timeline   *timeline.State
	Animations *keyframe.Engine
	Mixer      *audio.Mixer
	Images     *source.Store
	AudioStore *audio.Store
	Exporter   *compositor.Exporter
	Encoder    FrameEncoder

	// Optional whole-frame color passes applied during export.
	Grade     *colorfx.Adjustments
	ChromaKey *colorfx.KeyOptions
}

func New(log zerolog.Logger, cfg Config) *Session {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.BitDepth.Value == 0 {
		cfg.BitDepth = audio.Depth16
	}

	id := uuid.NewString()
	log = log.With().Str("session", id).Logger()

	images := source.NewStore()
	audioStore := audio.NewStore()
	return &Session{
		ID:         id,
		Log:        log,
		Timeline:   timeline.NewState(cfg.Duration),
		Animations: keyframe.NewEngine(),
		Mixer:      audio.NewMixer("main", cfg.SampleRate, cfg.BitDepth, audioStore),
		Images:     images,
		AudioStore: audioStore,
		Exporter:   compositor.NewExporter(log, images),
		Encoder:    &encoder.FFmpegEncoder{},
	}
}

// FromDocument rebuilds a session from a saved project.
func FromDocument(log zerolog.Logger, doc project.Document) (*Session, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	state, err := project.RestoreTimeline(doc)
	if err != nil {
		return nil, err
	}
	engine, err := project.RestoreAnimations(doc)
	if err != nil {
		return nil, err
	}

	audioStore := audio.NewStore()
	mixer, err := project.RestoreMixer(doc, audioStore)
	if err != nil {
		return nil, err
	}
	if mixer == nil {
		mixer = audio.NewMixer("main", 48000, audio.Depth16, audioStore)
	}

	id := uuid.NewString()
	log = log.With().Str("session", id).Logger()
	images := source.NewStore()

	return &Session{
		ID:         id,
		Log:        log,
		Timeline:   state,
		Animations: engine,
		Mixer:      mixer,
		Images:     images,
		AudioStore: audioStore,
		Exporter:   compositor.NewExporter(log, images),
		Encoder:    &encoder.FFmpegEncoder{},
	}, nil
}

// Open loads a project file into a fresh session.
func Open(log zerolog.Logger, path string) (*Session, error) {
	doc, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	return FromDocument(log, doc)
}

// Save persists the session as a project file.
func (s *Session) Save(path string) error {
	doc, err := project.Snapshot(s.Timeline, s.Animations, s.Mixer)
	if err != nil {
		return err
	}
	return project.Save(path, doc)
}

// Captions renders the session's caption elements as an SRT document.
func (s *Session) Captions() string {
	cues := timeline.CuesFromElements(s.Timeline.Elements())
	return timeline.FormatSRT(cues)
}

// SaveCaptions writes the SRT document to a file.
func (s *Session) SaveCaptions(path string) error {
	return merry.Wrap(os.WriteFile(path, []byte(s.Captions()), 0644))
}

// exportInput snapshots the timeline into a compositor input covering the
// trimmed window.
func (s *Session) exportInput() compositor.Input {
	trimStart, trimEnd := s.Timeline.Trim()
	return compositor.Input{
		Start:      trimStart,
		Duration:   trimEnd - trimStart,
		Elements:   s.Timeline.Elements(),
		Animations: s.Animations,
		Grade:      s.Grade,
		ChromaKey:  s.ChromaKey,
	}
}

// ExportVideo renders the trimmed timeline window to outputPath: frames
// stream to ffmpeg while they are composited, the mix renders offline, and
// the two are muxed at the end. A mixer with nothing audible produces a
// video-only file.
func (s *Session) ExportVideo(ctx context.Context, target compositor.Target, codec, outputPath string, onProgress compositor.ProgressFunc) error {
	input := s.exportInput()

	withAudio := s.Mixer != nil && len(s.Mixer.Tracks()) > 0
	videoPath := outputPath
	if withAudio {
		videoPath = outputPath + ".video.tmp.mp4"
	}

	sink, err := s.Encoder.Start(ctx, encoder.Settings{
		Width:   target.Width,
		Height:  target.Height,
		FPS:     target.FPS,
		Quality: target.Quality,
		Codec:   codec,
	}, videoPath)
	if err != nil {
		return err
	}

	// Export closes the sink itself on success; on failure close it here so
	// the encoder process is reaped, then discard the partial encode: a
	// failed or cancelled export must never leave output behind.
	if err := s.Exporter.Export(ctx, input, target, sink, onProgress); err != nil {
		_ = sink.Close()
		os.Remove(videoPath)
		return err
	}
	if !withAudio {
		return nil
	}
	defer os.Remove(videoPath)

	audioPath := outputPath + ".audio.tmp.wav"
	f, err := os.Create(audioPath)
	if err != nil {
		return merry.Wrap(err)
	}
	mixErr := s.Mixer.RenderWAV(ctx, f)
	closeErr := f.Close()
	if mixErr != nil {
		os.Remove(audioPath)
		if errors.Is(mixErr, audio.ErrNothingToMix) {
			// Every track muted: ship the video stream as-is.
			s.Log.Info().Msg("mix is empty, exporting video only")
			return merry.Wrap(os.Rename(videoPath, outputPath))
		}
		return mixErr
	}
	if closeErr != nil {
		os.Remove(audioPath)
		return merry.Wrap(closeErr)
	}
	defer os.Remove(audioPath)

	if err := encoder.Mux(ctx, videoPath, audioPath, outputPath); err != nil {
		os.Remove(outputPath)
		return err
	}
	return nil
}
