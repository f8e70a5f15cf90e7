//go:build nocgo
// +build nocgo

package audio

import "context"

// Stub player for builds without CGO. Synthesis and muxing still work;
// only speaker output is unavailable.

// Player is a no-op in nocgo builds.
type Player struct{}

// NewPlayer returns a player that cannot open a device.
func NewPlayer() *Player {
	return &Player{}
}

// Play always fails in nocgo builds.
func (p *Player) Play(context.Context, *Clip) error {
	return ErrNoAudioDevice
}

// Close is a no-op.
func (p *Player) Close() error {
	return nil
}
