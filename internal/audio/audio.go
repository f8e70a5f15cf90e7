package audio

import (
	"errors"
	"fmt"
	"time"
)

// Default output format. Both supported engines emit mono 16-bit PCM
// at 24 kHz.
const (
	DefaultSampleRate = 24000
	DefaultChannels   = 1
	DefaultBitDepth   = 16
)

var (
	// ErrEmptyClip is returned when a clip carries no samples.
	ErrEmptyClip = errors.New("audio clip is empty")

	// ErrFormatMismatch is returned when clips of different formats are combined.
	ErrFormatMismatch = errors.New("audio formats do not match")

	// ErrMisaligned is returned when PCM data is not frame aligned.
	ErrMisaligned = errors.New("pcm data is not frame aligned")

	// ErrNoAudioDevice is returned when no output device can be opened.
	ErrNoAudioDevice = errors.New("audio device unavailable")

	// ErrDeviceFormat is returned when a clip does not match the format
	// the output device was opened with.
	ErrDeviceFormat = errors.New("clip format does not match audio device")
)

// Format describes interleaved little-endian PCM audio.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat returns the format the synthesis engines produce.
func DefaultFormat() Format {
	return Format{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		BitDepth:   DefaultBitDepth,
	}
}

// BytesPerFrame returns the size of one sample frame across all channels.
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitDepth / 8
}

// Validate checks that the format is usable.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", f.Channels)
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", f.BitDepth)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// Clip is a decoded waveform: PCM bytes plus the format describing them.
type Clip struct {
	Format Format
	PCM    []byte
}

// Frames returns the number of sample frames in the clip.
func (c *Clip) Frames() int {
	bpf := c.Format.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return len(c.PCM) / bpf
}

// Duration returns the playback time of the clip.
func (c *Clip) Duration() time.Duration {
	if c.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.Format.SampleRate)
}

// Validate checks the clip for an empty or torn sample stream.
func (c *Clip) Validate() error {
	if err := c.Format.Validate(); err != nil {
		return err
	}
	if len(c.PCM) == 0 {
		return ErrEmptyClip
	}
	if len(c.PCM)%c.Format.BytesPerFrame() != 0 {
		return fmt.Errorf("%w: %d bytes with %d-byte frames",
			ErrMisaligned, len(c.PCM), c.Format.BytesPerFrame())
	}
	return nil
}
