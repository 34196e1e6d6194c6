package source

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/ansel1/merry/v2"
)

var ErrDecode = merry.Sentinel("image source could not be decoded")

// Store loads and caches the still images that visual elements draw from.
//
// Video decoding is an external capability: video elements reference a
// pre-extracted poster/proxy still, which is what the compositor rasterizes.
type Store struct {
	cache *cache.Cache[string, image.Image]
}

func NewStore() *Store {
	return &Store{cache: cache.New[string, image.Image]()}
}

// Load decodes a PNG or JPEG file, serving repeats from cache.
func (s *Store) Load(path string) (image.Image, error) {
	if img, ok := s.cache.Get(path); ok {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, merry.Wrap(ErrDecode, merry.WithCause(err), merry.AppendMessagef("%q", path))
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, merry.Wrap(ErrDecode, merry.WithCause(err), merry.AppendMessagef("%q", path))
	}
	s.cache.Set(path, img)
	return img, nil
}

// Put seeds the cache directly; used for generated or in-memory content.
func (s *Store) Put(path string, img image.Image) {
	s.cache.Set(path, img)
}
