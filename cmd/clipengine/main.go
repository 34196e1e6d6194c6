package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/renderlab/clipengine/internal/compositor"
	"github.com/renderlab/clipengine/internal/project"
	"github.com/renderlab/clipengine/internal/session"
	"github.com/renderlab/clipengine/internal/system"
	"github.com/rs/zerolog"
)

func main() {
	projectPtr := flag.String("project", "", "Path to the project YAML")
	outputPtr := flag.String("output", "", "Path to the rendered video (default: output/<project>_<timestamp>.mp4)")
	captionsPtr := flag.String("captions", "", "Also write the caption track as SRT to this path")
	presetPtr := flag.String("preset", "", "Format preset: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	widthPtr := flag.Int("width", 1280, "Frame width")
	heightPtr := flag.Int("height", 720, "Frame height")
	fpsPtr := flag.Int("fps", 30, "Frames per second")
	qualityPtr := flag.Int("quality", 0, "Video quality (0 = auto; x264: CRF 1-51, VideoToolbox: bitrate = Q*100kbit)")
	codecPtr := flag.String("codec", "", "H.264 encoder (default: best available)")
	verbosePtr := flag.Bool("verbose", false, "Debug logging")

	flag.Parse()

	level := zerolog.InfoLevel
	if *verbosePtr {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	system.InitResourceLimits(log)

	if *projectPtr == "" {
		log.Fatal().Msg("-project is required")
	}

	doc, err := project.Load(*projectPtr)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load project")
	}

	sess, err := session.FromDocument(log, doc)
	if err != nil {
		log.Fatal().Err(err).Msg("could not open session")
	}

	width, height, fps, quality := *widthPtr, *heightPtr, *fpsPtr, *qualityPtr
	if doc.Export != nil {
		if doc.Export.Width > 0 {
			width, height = doc.Export.Width, doc.Export.Height
		}
		if doc.Export.FPS > 0 {
			fps = doc.Export.FPS
		}
		if doc.Export.Quality > 0 {
			quality = doc.Export.Quality
		}
	}
	switch *presetPtr {
	case "16:9":
		width, height = 1280, 720
	case "9:16":
		width, height = 720, 1280
	case "4:5":
		width, height = 1080, 1350
	}

	codec := *codecPtr
	if codec == "" && doc.Export != nil {
		codec = doc.Export.Codec
	}
	if codec == "" {
		codec = system.BestH264Encoder()
		if codec != "libx264" {
			log.Info().Str("encoder", codec).Msg("hardware acceleration detected")
		}
	}
	if quality == 0 {
		switch codec {
		case "h264_videotoolbox":
			quality = 75
		case "h264_nvenc":
			quality = 28
		default:
			quality = 23
		}
	}

	output := *outputPtr
	if output == "" {
		os.MkdirAll("output", 0755)
		base := strings.TrimSuffix(filepath.Base(*projectPtr), filepath.Ext(*projectPtr))
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		output = filepath.Join("output", fmt.Sprintf("%s_%s.mp4", base, timestamp))
	}

	if *captionsPtr != "" {
		if err := sess.SaveCaptions(*captionsPtr); err != nil {
			log.Fatal().Err(err).Msg("could not write captions")
		}
		log.Info().Str("path", *captionsPtr).Msg("captions written")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := compositor.Target{FPS: fps, Width: width, Height: height, Quality: quality}

	started := time.Now()
	lastDecile := -1
	err = sess.ExportVideo(ctx, target, codec, output, func(p compositor.Progress) {
		decile := int(p.Percent) / 10
		if decile > lastDecile {
			lastDecile = decile
			log.Info().
				Int("frame", p.Frame+1).
				Int("total", p.TotalFrames).
				Str("progress", fmt.Sprintf("%.0f%%", p.Percent)).
				Msg("rendering")
		}
	})
	if err != nil {
		if sess.Exporter.State() == compositor.StateCancelled {
			log.Warn().Msg("export cancelled")
			os.Exit(130)
		}
		log.Fatal().Err(err).Msg("export failed")
	}

	elapsed := time.Since(started)
	stats := system.Snapshot()
	log.Info().
		Str("output", output).
		Dur("elapsed", elapsed).
		Int("cpus", stats.LogicalCPUs).
		Uint64("total_memory_mb", stats.TotalMemoryMB).
		Str("memory_used", fmt.Sprintf("%.1f%%", stats.UsedMemoryPct)).
		Msg("export finished")
}
