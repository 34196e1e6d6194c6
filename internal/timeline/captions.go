package timeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
)

// Cue is one caption block destined for an SRT document.
type Cue struct {
	Text  string
	Start float64
	End   float64
}

// CuesFromElements collects caption elements in insertion order.
func CuesFromElements(elements []Element) []Cue {
	return lo.FilterMap(elements, func(el Element, _ int) (Cue, bool) {
		caption, ok := el.(Caption)
		if !ok {
			return Cue{}, false
		}
		start, end := caption.Window()
		return Cue{Text: caption.Text, Start: start, End: end}, true
	})
}

// FormatSRT renders cues as numbered SRT blocks with HH:MM:SS,mmm timestamps.
func FormatSRT(cues []Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(cue.Start), srtTimestamp(cue.End), cue.Text)
	}
	return b.String()
}

func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int(math.Round(seconds * 1000))
	hours := millis / 3600000
	millis -= hours * 3600000
	minutes := millis / 60000
	millis -= minutes * 60000
	secs := millis / 1000
	millis -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
