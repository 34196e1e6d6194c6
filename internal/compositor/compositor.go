package compositor

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"

	"github.com/ansel1/merry/v2"
	"github.com/orsinium-labs/enum"
	"github.com/renderlab/clipengine/internal/colorfx"
	"github.com/renderlab/clipengine/internal/encoder"
	"github.com/renderlab/clipengine/internal/keyframe"
	"github.com/renderlab/clipengine/internal/source"
	"github.com/renderlab/clipengine/internal/system"
	"github.com/renderlab/clipengine/internal/timeline"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrExportFailed  = merry.Sentinel("export failed")
	ErrInvalidTarget = merry.Sentinel("invalid export target")
)

// State is the lifecycle phase of an exporter.
type State enum.Member[string]

var (
	StateIdle      = State{Value: "idle"}
	StateRendering = State{Value: "rendering"}
	StateEncoding  = State{Value: "encoding"}
	StateDone      = State{Value: "done"}
	StateFailed    = State{Value: "failed"}
	StateCancelled = State{Value: "cancelled"}
	States         = enum.New(StateIdle, StateRendering, StateEncoding, StateDone, StateFailed, StateCancelled)
)

// Target describes the frame geometry and encoder quality of one export.
type Target struct {
	FPS     int
	Width   int
	Height  int
	Quality int
}

// Input is an immutable snapshot of everything an export reads: the timeline
// window, the elements in insertion order, their animations, and optional
// whole-frame color passes.
type Input struct {
	Start      float64 // export window offset, usually the trim-in point
	Duration   float64
	Elements   []timeline.Element
	Animations *keyframe.Engine
	Grade      *colorfx.Adjustments
	ChromaKey  *colorfx.KeyOptions
}

// Progress reports one written frame. Percent grows monotonically and reaches
// exactly 100 on the final frame.
type Progress struct {
	Frame       int
	TotalFrames int
	Percent     float64
}

type ProgressFunc func(Progress)

// Exporter composites timeline frames and streams them to a FrameSink.
// A single Exporter runs one export at a time.
type Exporter struct {
	log    zerolog.Logger
	images *source.Store
	pool   *system.ImagePool

	mu    sync.Mutex
	state State
}

func NewExporter(log zerolog.Logger, images *source.Store) *Exporter {
	if images == nil {
		images = source.NewStore()
	}
	return &Exporter{
		log:    log,
		images: images,
		pool:   system.NewImagePool(),
		state:  StateIdle,
	}
}

func (e *Exporter) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Exporter) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

type renderedFrame struct {
	index int
	img   *image.RGBA
}

// Export renders ceil(duration*fps) frames at t = frame/fps, writes them to
// the sink in presentation order and fires onProgress after each write.
//
// Cancelling ctx stops the export within one frame and leaves the exporter
// in the cancelled state; the returned error then unwraps to ctx's cause.
// Any other failure moves it to the failed state and wraps ErrExportFailed
// with the index of the last frame that reached the sink.
func (e *Exporter) Export(ctx context.Context, in Input, target Target, sink encoder.FrameSink, onProgress ProgressFunc) error {
	if target.FPS <= 0 || target.Width <= 0 || target.Height <= 0 {
		return merry.Wrap(ErrInvalidTarget,
			merry.AppendMessagef("%dx%d @ %d fps", target.Width, target.Height, target.FPS))
	}
	if in.Duration <= 0 {
		return merry.Wrap(ErrInvalidTarget, merry.AppendMessagef("duration %.3fs", in.Duration))
	}

	totalFrames := int(math.Ceil(in.Duration * float64(target.FPS)))
	raster := &rasterizer{
		images: e.images,
		pool:   e.pool,
		width:  target.Width,
		height: target.Height,
	}

	e.setState(StateRendering)
	e.log.Info().
		Int("frames", totalFrames).
		Int("fps", target.FPS).
		Int("width", target.Width).
		Int("height", target.Height).
		Msg("export started")

	g, gctx := errgroup.WithContext(ctx)
	frames := make(chan renderedFrame, 4)

	// Producer: rasterize frames in order. The channel preserves that order
	// for the writer, so progress and sink writes stay sequential.
	g.Go(func() error {
		defer close(frames)
		for f := 0; f < totalFrames; f++ {
			t := in.Start + float64(f)/float64(target.FPS)
			img, err := e.renderFrame(raster, in, t)
			if err != nil {
				return err
			}
			select {
			case frames <- renderedFrame{index: f, img: img}:
			case <-gctx.Done():
				e.pool.Put(img)
				return gctx.Err()
			}
		}
		return nil
	})

	lastWritten := -1
	g.Go(func() error {
		for {
			select {
			case fr, ok := <-frames:
				if !ok {
					return nil
				}
				// A cancel raised from the previous progress callback must
				// win over a frame that is already queued.
				if err := gctx.Err(); err != nil {
					e.pool.Put(fr.img)
					return err
				}
				err := sink.WriteFrame(fr.img)
				e.pool.Put(fr.img)
				if err != nil {
					return err
				}
				lastWritten = fr.index
				if onProgress != nil {
					onProgress(Progress{
						Frame:       fr.index,
						TotalFrames: totalFrames,
						Percent:     float64(fr.index+1) / float64(totalFrames) * 100,
					})
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	if err := g.Wait(); err != nil {
		// The producer has closed the channel; frames still queued in it
		// go back to the pool.
		for fr := range frames {
			e.pool.Put(fr.img)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			e.setState(StateCancelled)
			e.log.Info().Int("last_frame", lastWritten).Msg("export cancelled")
			return err
		}
		e.setState(StateFailed)
		e.log.Error().Err(err).Int("last_frame", lastWritten).Msg("export failed")
		return merry.Wrap(ErrExportFailed, merry.WithCause(err),
			merry.AppendMessagef("after frame %d of %d", lastWritten, totalFrames))
	}

	e.setState(StateEncoding)
	if err := sink.Close(); err != nil {
		e.setState(StateFailed)
		return merry.Wrap(ErrExportFailed, merry.WithCause(err))
	}

	e.setState(StateDone)
	e.log.Info().Int("frames", totalFrames).Msg("export finished")
	return nil
}

// renderFrame composites every element visible at t, in insertion order, then
// runs the optional whole-frame color passes.
func (e *Exporter) renderFrame(raster *rasterizer, in Input, t float64) (*image.RGBA, error) {
	img := e.pool.Get(image.Rect(0, 0, raster.width, raster.height))

	for _, el := range in.Elements {
		if el.Kind() == timeline.KindAudio || !timeline.VisibleAt(el, t) {
			continue
		}
		props := resolveProps(in.Animations, el, t)
		if err := raster.drawElement(img, el, props); err != nil {
			e.pool.Put(img)
			return nil, err
		}
	}

	if in.Grade != nil {
		colorfx.ApplyGrade(img.Pix, *in.Grade)
	}
	if in.ChromaKey != nil {
		colorfx.ApplyChromaKey(img.Pix, *in.ChromaKey)
	}
	return img, nil
}
