package engine

import (
	"bytes"
	"context"

	"github.com/Neperienx/TTS-local/internal/audio"
	"github.com/Neperienx/TTS-local/internal/cache"
	"github.com/charmbracelet/log"
)

// Cached wraps an engine with the synthesis cache. Entries are stored
// as encoded WAV so anything on disk stays playable with external
// tools. Cache failures are never fatal; they just cost a resynthesis.
type Cached struct {
	Engine
	store *cache.Manager
}

// WithCache layers the cache over eng. A nil store returns eng as-is.
func WithCache(eng Engine, store *cache.Manager) Engine {
	if store == nil {
		return eng
	}
	return &Cached{Engine: eng, store: store}
}

// Synthesize implements Engine.
func (c *Cached) Synthesize(ctx context.Context, req Request) (*audio.Clip, error) {
	key := cache.Key(c.Info().Name, req.Voice(), req.Language, req.Text)

	if data, ok := c.store.Get(key); ok {
		clip, err := audio.DecodeWAV(bytes.NewReader(data))
		if err == nil {
			log.Debug("synthesis cache hit", "key", key)
			return clip, nil
		}
		// A corrupt entry costs one resynthesis.
		log.Warn("discarding corrupt cache entry", "key", key, "error", err)
	}

	clip, err := c.Engine.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := audio.EncodeWAV(&buf, clip); err == nil {
		if err := c.store.Put(key, buf.Bytes()); err != nil {
			log.Debug("synthesis cache put failed", "key", key, "error", err)
		}
	}
	return clip, nil
}

var _ Engine = (*Cached)(nil)
