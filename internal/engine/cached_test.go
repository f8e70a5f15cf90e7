package engine

import (
	"context"
	"testing"

	"github.com/Neperienx/TTS-local/internal/cache"
)

func TestCachedSynthesize(t *testing.T) {
	store, err := cache.New(cache.Config{
		Dir:         t.TempDir(),
		MemoryBytes: 1 << 20,
		DiskBytes:   8 << 20,
	})
	if err != nil {
		t.Fatalf("cache.New() error: %v", err)
	}
	defer store.Close() //nolint:errcheck

	fake := &fakeEngine{maxChars: 1000}
	eng := WithCache(fake, store)

	req := Request{Text: "say this twice", Language: "en"}

	first, err := eng.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("first Synthesize() error: %v", err)
	}
	second, err := eng.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("second Synthesize() error: %v", err)
	}

	if len(fake.calls) != 1 {
		t.Errorf("engine ran %d times, want 1 (second call served from cache)", len(fake.calls))
	}
	if first.Duration() != second.Duration() || first.Format != second.Format {
		t.Error("cached clip differs from synthesized clip")
	}

	// A different voice must miss.
	req.SpeakerID = "Ana Florence"
	if _, err := eng.Synthesize(context.Background(), req); err != nil {
		t.Fatalf("third Synthesize() error: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Errorf("engine ran %d times after voice change, want 2", len(fake.calls))
	}
}

func TestWithCacheNilStore(t *testing.T) {
	fake := &fakeEngine{maxChars: 10}
	if eng := WithCache(fake, nil); eng != Engine(fake) {
		t.Error("WithCache(nil) should return the engine unwrapped")
	}
}
