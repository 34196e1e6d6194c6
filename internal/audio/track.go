package audio

import (
	"os"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/ansel1/merry/v2"
	"github.com/google/uuid"
)

// Track is one mixable audio source placement. Everything but the decoded
// clip (and therefore the duration) is freely mutable between mixes.
type Track struct {
	ID         string
	Name       string
	SourcePath string
	StartTime  float64 // seconds into the mix
	Volume     float64 // 1.0 = unity
	Muted      bool
	Pan        float64 // -1 full left .. 1 full right

	clip *Clip
}

// NewTrack wraps an already decoded clip.
func NewTrack(clip *Clip, name string, startTime float64) *Track {
	return &Track{
		ID:        uuid.NewString(),
		Name:      name,
		StartTime: startTime,
		Volume:    1,
		clip:      clip,
	}
}

// Clip returns the decoded audio. Immutable once decoded.
func (t *Track) Clip() *Clip { return t.clip }

// Duration is the decoded source length in seconds.
func (t *Track) Duration() float64 { return t.clip.Duration() }

// Store loads and caches decoded audio clips by source path, so repeated
// mixes of the same session never re-decode a source.
type Store struct {
	cache *cache.Cache[string, *Clip]
}

func NewStore() *Store {
	return &Store{cache: cache.New[string, *Clip]()}
}

// Load reads and decodes a WAV file, serving repeats from cache.
func (s *Store) Load(path string) (*Clip, error) {
	if clip, ok := s.cache.Get(path); ok {
		return clip, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, merry.Wrap(ErrDecode, merry.WithCause(err), merry.AppendMessagef("%q", path))
	}
	clip, err := DecodeWAV(data)
	if err != nil {
		return nil, merry.Wrap(err, merry.AppendMessagef("%q", path))
	}
	s.cache.Set(path, clip)
	return clip, nil
}
