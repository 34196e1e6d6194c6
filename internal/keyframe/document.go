package keyframe

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/ansel1/merry/v2"
)

const DocumentVersion = "1.0"

var ErrInvalidDocument = merry.Sentinel("invalid animation document")

// DocumentEntry is one [id, property] pair of the export document. It
// marshals as a two-element JSON array to keep the wire shape stable.
type DocumentEntry struct {
	ID       string
	Property AnimatedProperty
}

//goland:noinspection GoMixedReceiverTypes
func (e DocumentEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.ID, e.Property})
}

//goland:noinspection GoMixedReceiverTypes
func (e *DocumentEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return merry.Wrap(ErrInvalidDocument, merry.WithCause(err))
	}
	if len(pair) != 2 {
		return merry.Wrap(ErrInvalidDocument, merry.AppendMessage("entry is not an [id, property] pair"))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return merry.Wrap(ErrInvalidDocument, merry.WithCause(err))
	}
	if err := json.Unmarshal(pair[1], &e.Property); err != nil {
		return merry.Wrap(ErrInvalidDocument, merry.WithCause(err))
	}
	return nil
}

// Document is the serializable form of the whole registry.
type Document struct {
	Animations []DocumentEntry `json:"animations"`
	Version    string          `json:"version"`
	ExportedAt time.Time       `json:"exportedAt"`
}

// Export serializes every registered animated property, ordered by id for a
// stable output.
func (e *Engine) Export() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.properties))
	for id := range e.properties {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	doc := Document{
		Animations: make([]DocumentEntry, 0, len(ids)),
		Version:    DocumentVersion,
		ExportedAt: time.Now().UTC(),
	}
	for _, id := range ids {
		doc.Animations = append(doc.Animations, DocumentEntry{ID: id, Property: *e.properties[id]})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Import validates the document shape and replaces matching registry entries
// atomically. A malformed document leaves the registry untouched.
func (e *Engine) Import(data []byte) error {
	var shape struct {
		Animations json.RawMessage `json:"animations"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return merry.Wrap(ErrInvalidDocument, merry.WithCause(err))
	}
	trimmed := bytes.TrimSpace(shape.Animations)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return merry.Wrap(ErrInvalidDocument, merry.AppendMessage("animations must be a sequence"))
	}

	var entries []DocumentEntry
	if err := json.Unmarshal(shape.Animations, &entries); err != nil {
		return merry.Wrap(ErrInvalidDocument, merry.WithCause(err))
	}

	// Stage everything before touching the registry.
	staged := make(map[string]*AnimatedProperty, len(entries))
	for _, entry := range entries {
		prop := entry.Property
		kfs := make([]Keyframe, len(prop.Keyframes))
		copy(kfs, prop.Keyframes)
		sortKeyframes(kfs)
		prop.Keyframes = kfs
		staged[entry.ID] = &prop
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for id, prop := range staged {
		e.properties[id] = prop
	}
	return nil
}
