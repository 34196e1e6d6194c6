package keyframe_test

import (
	"encoding/json"
	"testing"

	"github.com/renderlab/clipengine/internal/easing"
	"github.com/renderlab/clipengine/internal/keyframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportRoundTrip(t *testing.T) {
	engine := keyframe.NewEngine()
	engine.CreateAnimation("el.opacity", "opacity")
	_, err := engine.AddKeyframe("el.opacity", 0, 0, easing.EaseOut)
	require.NoError(t, err)
	_, err = engine.AddKeyframe("el.opacity", 2, 100, easing.Linear)
	require.NoError(t, err)

	data, err := engine.Export()
	require.NoError(t, err)

	var doc keyframe.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, keyframe.DocumentVersion, doc.Version)
	require.Len(t, doc.Animations, 1)
	assert.Equal(t, "el.opacity", doc.Animations[0].ID)

	restored := keyframe.NewEngine()
	require.NoError(t, restored.Import(data))
	assert.InDelta(t, 50.0, restored.GetValueAtTime("el.opacity", 1), 1e-9)
}

func TestImportRejectsMalformedDocument(t *testing.T) {
	type args struct {
		name string
		doc  string
	}

	tests := []args{
		{"not json", "{nope"},
		{"missing animations", `{"version":"1.0"}`},
		{"animations not a sequence", `{"animations":{"a":1}}`},
		{"animations null", `{"animations":null}`},
		{"entry not a pair", `{"animations":[["only-id"]]}`},
		{"unknown easing", `{"animations":[["p",{"id":"p","name":"x","keyframes":[{"id":"k","time":0,"value":1,"easing":"wobble"}]}]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := keyframe.NewEngine()
			engine.CreateAnimation("keep", "x")
			_, err := engine.AddKeyframe("keep", 1, 5, easing.Linear)
			require.NoError(t, err)

			assert.ErrorIs(t, engine.Import([]byte(tt.doc)), keyframe.ErrInvalidDocument)

			// Existing registry state survives untouched.
			kfs, err := engine.Keyframes("keep")
			require.NoError(t, err)
			assert.Len(t, kfs, 1)
		})
	}
}

func TestImportSortsKeyframes(t *testing.T) {
	doc := `{"animations":[["p",{"id":"p","name":"x","keyframes":[
		{"id":"b","time":3,"value":1,"easing":"linear"},
		{"id":"a","time":1,"value":0,"easing":"linear"}
	]}]],"version":"1.0"}`

	engine := keyframe.NewEngine()
	require.NoError(t, engine.Import([]byte(doc)))

	kfs, err := engine.Keyframes("p")
	require.NoError(t, err)
	require.Len(t, kfs, 2)
	assert.Equal(t, "a", kfs[0].ID)
}
