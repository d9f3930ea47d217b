package timeline

import (
	"context"
	"fmt"

	"github.com/Corner-Boxing/corner-backend/internal/assets"
	"github.com/Corner-Boxing/corner-backend/internal/audio"
)

// Loader fetches a clip by ref and returns it as PCM.
type Loader interface {
	Load(ctx context.Context, ref string) (*audio.Track, error)
}

// DecodingLoader reads clips from the asset repository and decodes them
// with FFmpeg.
type DecodingLoader struct {
	repo  assets.Repository
	codec *audio.Codec
}

func NewDecodingLoader(repo assets.Repository, codec *audio.Codec) *DecodingLoader {
	return &DecodingLoader{repo: repo, codec: codec}
}

func (l *DecodingLoader) Load(ctx context.Context, ref string) (*audio.Track, error) {
	rc, err := l.repo.Open(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	defer rc.Close()

	track, err := l.codec.Decode(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	return track, nil
}

// cachingLoader remembers decoded clips for the lifetime of one render.
// Tracks are only read after loading, so sharing them is safe.
type cachingLoader struct {
	next  Loader
	clips map[string]*audio.Track
}

func newCachingLoader(next Loader) *cachingLoader {
	return &cachingLoader{next: next, clips: make(map[string]*audio.Track)}
}

func (l *cachingLoader) Load(ctx context.Context, ref string) (*audio.Track, error) {
	if t, ok := l.clips[ref]; ok {
		return t, nil
	}
	t, err := l.next.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	l.clips[ref] = t
	return t, nil
}
