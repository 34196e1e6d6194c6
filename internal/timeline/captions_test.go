package timeline_test

import (
	"testing"

	"github.com/renderlab/clipengine/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSRT(t *testing.T) {
	cues := []timeline.Cue{
		{Text: "Hello there", Start: 0, End: 2.5},
		{Text: "Second line", Start: 61.25, End: 3599.999},
		{Text: "Over an hour", Start: 3661.5, End: 3700},
	}

	expected := "1\n00:00:00,000 --> 00:00:02,500\nHello there\n\n" +
		"2\n00:01:01,250 --> 00:59:59,999\nSecond line\n\n" +
		"3\n01:01:01,500 --> 01:01:40,000\nOver an hour\n\n"

	assert.Equal(t, expected, timeline.FormatSRT(cues))
}

func TestFormatSRTEmpty(t *testing.T) {
	assert.Equal(t, "", timeline.FormatSRT(nil))
}

func TestCuesFromElements(t *testing.T) {
	s := timeline.NewState(60)
	s.AddTextAt(0, "not a caption")
	s.AddCaptionAt(1, "first")
	s.AddCaptionAt(4, "second")

	cues := timeline.CuesFromElements(s.Elements())
	require.Len(t, cues, 2)
	assert.Equal(t, "first", cues[0].Text)
	assert.Equal(t, 1.0, cues[0].Start)
	assert.Equal(t, "second", cues[1].Text)
}
