package engine

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Overrides are runtime knobs read from the environment rather than
// flags, so containers and CI can relocate the Python tooling without
// touching user configuration.
type Overrides struct {
	Python       string        `env:"TTS_LOCAL_PYTHON" envDefault:"python3"`
	TTSBin       string        `env:"TTS_LOCAL_TTS_BIN" envDefault:"tts"`
	FFmpeg       string        `env:"TTS_LOCAL_FFMPEG" envDefault:"ffmpeg"`
	SynthTimeout time.Duration `env:"TTS_LOCAL_SYNTH_TIMEOUT" envDefault:"5m"`
}

// LoadOverrides reads the override set from the environment.
func LoadOverrides() (Overrides, error) {
	o, err := env.ParseAs[Overrides]()
	if err != nil {
		return Overrides{}, fmt.Errorf("parse environment overrides: %w", err)
	}
	return o, nil
}
