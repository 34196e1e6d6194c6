package keyframe_test

import (
	"sort"
	"testing"

	"github.com/renderlab/clipengine/internal/easing"
	"github.com/renderlab/clipengine/internal/keyframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAnimationDuplicateIsNoOp(t *testing.T) {
	engine := keyframe.NewEngine()

	first := engine.CreateAnimation("el-1.opacity", "opacity")
	_, err := engine.AddKeyframe("el-1.opacity", 1, 50, easing.Linear)
	require.NoError(t, err)

	second := engine.CreateAnimation("el-1.opacity", "opacity")
	assert.Same(t, first, second)

	kfs, err := engine.Keyframes("el-1.opacity")
	require.NoError(t, err)
	assert.Len(t, kfs, 1)
}

func TestKeyframesStaySortedByTime(t *testing.T) {
	engine := keyframe.NewEngine()
	engine.CreateAnimation("p", "scale")

	times := []float64{5, 1, 3, 2, 4, 0, 3}
	for _, tm := range times {
		_, err := engine.AddKeyframe("p", tm, tm*10, easing.Linear)
		require.NoError(t, err)

		kfs, err := engine.Keyframes("p")
		require.NoError(t, err)
		sorted := sort.SliceIsSorted(kfs, func(i, j int) bool {
			return kfs[i].Time < kfs[j].Time
		})
		assert.True(t, sorted, "keyframes out of order after inserting t=%f", tm)
	}
}

func TestGetValueAtTimeClamping(t *testing.T) {
	engine := keyframe.NewEngine()
	engine.CreateAnimation("p", "rotation")
	_, err := engine.AddKeyframe("p", 1, 0, easing.Linear)
	require.NoError(t, err)
	_, err = engine.AddKeyframe("p", 3, 10, easing.Linear)
	require.NoError(t, err)

	assert.Equal(t, 0.0, engine.GetValueAtTime("p", 0))
	assert.Equal(t, 10.0, engine.GetValueAtTime("p", 4))
	assert.InDelta(t, 5.0, engine.GetValueAtTime("p", 2), 1e-9)
}

func TestGetValueAtTimeDefaults(t *testing.T) {
	engine := keyframe.NewEngine()
	engine.CreateAnimation("empty", "opacity")

	assert.Equal(t, 0.0, engine.GetValueAtTime("empty", 2))
	assert.Equal(t, 0.0, engine.GetValueAtTime("unregistered", 2))
}

func TestGetValueAtTimeExactMatch(t *testing.T) {
	engine := keyframe.NewEngine()
	engine.CreateAnimation("p", "x")
	_, err := engine.AddKeyframe("p", 0, 0, easing.Bounce)
	require.NoError(t, err)
	_, err = engine.AddKeyframe("p", 2, 7, easing.Bounce)
	require.NoError(t, err)
	_, err = engine.AddKeyframe("p", 4, 1, easing.Bounce)
	require.NoError(t, err)

	assert.Equal(t, 7.0, engine.GetValueAtTime("p", 2))
}

func TestEarlierKeyframeEasingGovernsSegment(t *testing.T) {
	engine := keyframe.NewEngine()
	engine.CreateAnimation("p", "scale")
	_, err := engine.AddKeyframe("p", 0, 0, easing.EaseIn)
	require.NoError(t, err)
	_, err = engine.AddKeyframe("p", 2, 10, easing.Linear)
	require.NoError(t, err)

	// ease-in at progress 0.5 is 0.25, so the value is 2.5, not 5.
	assert.InDelta(t, 2.5, engine.GetValueAtTime("p", 1), 1e-9)
}

func TestUpdateKeyframeResortsOnTimeChange(t *testing.T) {
	engine := keyframe.NewEngine()
	engine.CreateAnimation("p", "x")
	firstID, err := engine.AddKeyframe("p", 0, 1, easing.Linear)
	require.NoError(t, err)
	_, err = engine.AddKeyframe("p", 2, 2, easing.Linear)
	require.NoError(t, err)

	newTime := 5.0
	require.NoError(t, engine.UpdateKeyframe("p", firstID, keyframe.Update{Time: &newTime}))

	kfs, err := engine.Keyframes("p")
	require.NoError(t, err)
	assert.Equal(t, 2.0, kfs[0].Time)
	assert.Equal(t, firstID, kfs[1].ID)
}

func TestUpdateKeyframePartial(t *testing.T) {
	engine := keyframe.NewEngine()
	engine.CreateAnimation("p", "x")
	id, err := engine.AddKeyframe("p", 1, 1, easing.Linear)
	require.NoError(t, err)

	value := 9.0
	kind := easing.Elastic
	require.NoError(t, engine.UpdateKeyframe("p", id, keyframe.Update{Value: &value, Easing: &kind}))

	kfs, err := engine.Keyframes("p")
	require.NoError(t, err)
	assert.Equal(t, 1.0, kfs[0].Time)
	assert.Equal(t, 9.0, kfs[0].Value)
	assert.Equal(t, easing.Elastic, kfs[0].Easing)
}

func TestRemoveKeyframe(t *testing.T) {
	engine := keyframe.NewEngine()
	engine.CreateAnimation("p", "x")
	id, err := engine.AddKeyframe("p", 1, 1, easing.Linear)
	require.NoError(t, err)

	require.NoError(t, engine.RemoveKeyframe("p", id))
	assert.ErrorIs(t, engine.RemoveKeyframe("p", id), keyframe.ErrKeyframeNotFound)

	kfs, err := engine.Keyframes("p")
	require.NoError(t, err)
	assert.Empty(t, kfs)
}

func TestSnapshotIsolation(t *testing.T) {
	engine := keyframe.NewEngine()
	engine.CreateAnimation("p", "x")
	_, err := engine.AddKeyframe("p", 1, 1, easing.Linear)
	require.NoError(t, err)

	before, err := engine.Keyframes("p")
	require.NoError(t, err)

	_, err = engine.AddKeyframe("p", 0, 0, easing.Linear)
	require.NoError(t, err)

	// The earlier snapshot still holds exactly one keyframe.
	assert.Len(t, before, 1)
	assert.Equal(t, 1.0, before[0].Time)
}
