//go:build !nocgo
// +build !nocgo

package audio

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// otoFormat matches Clip PCM: signed 16-bit little endian.
const otoFormat = oto.FormatSignedInt16LE

// Player streams clips to the default output device. The underlying
// context is created once, at the format of the first clip played, and
// every process gets at most one; later clips must match that format.
type Player struct {
	mu     sync.Mutex
	ctx    *oto.Context
	format Format
}

// NewPlayer returns a player with no device opened yet. The device is
// opened lazily on first Play so that headless runs never touch it.
func NewPlayer() *Player {
	return &Player{}
}

func (p *Player) ensureContext(f Format) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		if f != p.format {
			return fmt.Errorf("%w: device opened at %s, clip is %s",
				ErrDeviceFormat, p.format, f)
		}
		return nil
	}

	options := &oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       otoFormat,
	}

	// macOS underruns with the default buffer on longer narrations.
	if runtime.GOOS == "darwin" {
		options.BufferSize = 100 * time.Millisecond
	}

	octx, ready, err := oto.NewContext(options)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoAudioDevice, err)
	}
	<-ready

	p.ctx = octx
	p.format = f
	return nil
}

// Play blocks until the clip has drained or ctx is cancelled.
func (p *Player) Play(ctx context.Context, c *Clip) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := p.ensureContext(c.Format); err != nil {
		return err
	}

	player := p.ctx.NewPlayer(bytes.NewReader(c.PCM))
	defer player.Close() //nolint:errcheck
	player.Play()

	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-tick.C:
		}
	}

	if err := player.Err(); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}

// Close suspends the audio context. oto contexts cannot be destroyed,
// so a closed player only stops feeding the device.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil {
		return nil
	}
	return p.ctx.Suspend()
}
