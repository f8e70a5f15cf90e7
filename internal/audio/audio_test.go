package audio

import (
	"errors"
	"testing"
	"time"
)

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr bool
	}{
		{"default", DefaultFormat(), false},
		{"stereo", Format{SampleRate: 44100, Channels: 2, BitDepth: 16}, false},
		{"zero rate", Format{SampleRate: 0, Channels: 1, BitDepth: 16}, true},
		{"negative rate", Format{SampleRate: -1, Channels: 1, BitDepth: 16}, true},
		{"three channels", Format{SampleRate: 24000, Channels: 3, BitDepth: 16}, true},
		{"8 bit", Format{SampleRate: 24000, Channels: 1, BitDepth: 8}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClipDuration(t *testing.T) {
	f := DefaultFormat()

	// One second of mono 16-bit at 24 kHz is 48000 bytes.
	clip := &Clip{Format: f, PCM: make([]byte, 48000)}

	if got := clip.Frames(); got != 24000 {
		t.Errorf("Frames() = %d, want 24000", got)
	}
	if got := clip.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}
}

func TestClipValidate(t *testing.T) {
	f := DefaultFormat()

	empty := &Clip{Format: f}
	if err := empty.Validate(); !errors.Is(err, ErrEmptyClip) {
		t.Errorf("empty clip: got %v, want ErrEmptyClip", err)
	}

	torn := &Clip{Format: f, PCM: make([]byte, 3)}
	if err := torn.Validate(); !errors.Is(err, ErrMisaligned) {
		t.Errorf("torn clip: got %v, want ErrMisaligned", err)
	}

	ok := &Clip{Format: f, PCM: make([]byte, 4)}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid clip: unexpected error %v", err)
	}
}
