package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"

	"github.com/ansel1/merry/v2"
)

var ErrEncode = merry.Sentinel("video encoding failed")

// FrameSink consumes composited frames in presentation order.
type FrameSink interface {
	WriteFrame(img *image.RGBA) error
	Close() error
}

// Settings describe the encoded output stream.
type Settings struct {
	Width   int
	Height  int
	FPS     int
	Quality int    // libx264: CRF, nvenc: cq, videotoolbox: bitrate = Q*100kbit
	Codec   string // defaults to libx264
}

// FFmpegEncoder shells out to ffmpeg, streaming raw RGBA frames over stdin.
type FFmpegEncoder struct{}

// Start launches an ffmpeg process; the returned sink feeds it one frame per
// WriteFrame and finalizes the file on Close.
func (e *FFmpegEncoder) Start(ctx context.Context, settings Settings, outputPath string) (FrameSink, error) {
	codec := settings.Codec
	if codec == "" {
		codec = "libx264"
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", settings.Width, settings.Height),
		"-framerate", fmt.Sprintf("%d", settings.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", codec,
	}
	args = append(args, qualityArgs(codec, settings.Quality)...)
	args = append(args, outputPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, merry.Wrap(ErrEncode, merry.WithCause(err))
	}
	if err := cmd.Start(); err != nil {
		return nil, merry.Wrap(ErrEncode, merry.WithCause(err))
	}

	return &ffmpegSink{cmd: cmd, stdin: stdin, stderr: stderr}, nil
}

func qualityArgs(codec string, quality int) []string {
	switch codec {
	case "h264_videotoolbox":
		// VideoToolbox rejects -q:v on several versions; use a bitrate.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

type ffmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
}

func (s *ffmpegSink) WriteFrame(img *image.RGBA) error {
	if err := writeRawRGBA(s.stdin, img); err != nil {
		return merry.Wrap(ErrEncode, merry.WithCause(err))
	}
	return nil
}

func (s *ffmpegSink) Close() error {
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return merry.Wrap(ErrEncode, merry.WithCause(err),
			merry.AppendMessagef("ffmpeg: %s", s.stderr.String()))
	}
	return nil
}

func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	bounds := img.Bounds()
	if img.Stride != bounds.Dx()*4 || bounds.Min.X != 0 || bounds.Min.Y != 0 {
		repacked := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(repacked, repacked.Bounds(), img, bounds.Min, draw.Src)
		img = repacked
	}
	_, err := w.Write(img.Pix)
	return err
}

// Mux combines the encoded video stream with the independently rendered
// audio bed into the final container.
func Mux(ctx context.Context, videoPath, audioPath, finalPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		finalPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return merry.Wrap(ErrEncode, merry.WithCause(err),
			merry.AppendMessagef("ffmpeg mux: %s", string(out)))
	}
	return nil
}

// NullSink discards frames; tests use it to count what the compositor emits.
type NullSink struct {
	Frames int
	Closed bool
}

func (s *NullSink) WriteFrame(*image.RGBA) error {
	s.Frames++
	return nil
}

func (s *NullSink) Close() error {
	s.Closed = true
	return nil
}
