package system

import (
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits raises the open-file limit so exports with many frame
// and audio handles don't trip the default soft cap.
func InitResourceLimits(log zerolog.Logger) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Warn().Err(err).Msg("could not read open file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Warn().Err(err).Msg("could not raise open file limit")
		return
	}
	log.Debug().Uint64("limit", rLimit.Cur).Msg("open file limit raised")
}

// BestH264Encoder probes the local ffmpeg for a hardware H.264 encoder,
// preferring VideoToolbox, then NVENC, falling back to software libx264.
func BestH264Encoder() string {
	out, err := exec.Command("ffmpeg", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}

// Stats is a host snapshot attached to export performance reports.
type Stats struct {
	LogicalCPUs   int
	GoMaxProcs    int
	TotalMemoryMB uint64
	UsedMemoryPct float64
}

// Snapshot collects host CPU and memory figures. Failures degrade to zero
// values; a stats probe must never block an export.
func Snapshot() Stats {
	stats := Stats{GoMaxProcs: runtime.GOMAXPROCS(0)}

	if count, err := cpu.Counts(true); err == nil {
		stats.LogicalCPUs = count
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.TotalMemoryMB = vm.Total / 1024 / 1024
		stats.UsedMemoryPct = vm.UsedPercent
	}
	return stats
}
