// Package engine wraps the neural text-to-speech backends behind one
// interface. Every engine is an external process: XTTS-v2 through
// Coqui's tts CLI and Bark through python -m bark. Engines are spawned
// fresh per synthesis with pre-configured stdin, bounded runtime, and
// interrupt-then-kill teardown, so a wedged model run can never hang
// the caller.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Neperienx/TTS-local/internal/audio"
)

// Engine names accepted by --engine.
const (
	NameXTTS = "xtts"
	NameBark = "bark"
)

// DefaultTimeout bounds a single synthesis subprocess. Model load on
// first use can dominate, so this is generous.
const DefaultTimeout = 5 * time.Minute

// Request describes one synthesis call.
type Request struct {
	// Text is the narration to speak. Must fit the engine's input
	// limit; SynthesizeText chunks longer inputs.
	Text string

	// Language is an ISO 639-1 code (xtts only; bark infers language
	// from the text itself).
	Language string

	// SpeakerWAV is a reference recording to clone (xtts only).
	SpeakerWAV string

	// SpeakerID selects a built-in studio voice (xtts only).
	SpeakerID string

	// HistoryPrompt selects a speaker preset such as v2/en_speaker_6
	// (bark only).
	HistoryPrompt string
}

// Voice returns the speaker identity of the request, for cache keys.
func (r Request) Voice() string {
	switch {
	case r.SpeakerWAV != "":
		return "wav:" + r.SpeakerWAV
	case r.SpeakerID != "":
		return "id:" + r.SpeakerID
	case r.HistoryPrompt != "":
		return "preset:" + r.HistoryPrompt
	default:
		return "default"
	}
}

// Info describes an engine's fixed capabilities.
type Info struct {
	Name         string
	Version      string
	SampleRate   int
	MaxTextChars int
	NeedsGPU     bool
}

// Engine synthesizes speech from text.
type Engine interface {
	// Synthesize converts one request to a clip. The subprocess is
	// torn down when ctx ends.
	Synthesize(ctx context.Context, req Request) (*audio.Clip, error)

	// Info returns the engine's capabilities.
	Info() Info

	// Validate checks that the engine's runtime is installed and
	// executable without synthesizing anything.
	Validate() error

	// Close releases engine resources.
	Close() error
}

// Config carries the knobs shared by all engines.
type Config struct {
	// ModelName overrides the default model (xtts only).
	ModelName string

	// Device is auto, cpu, or cuda.
	Device string

	// Timeout bounds one subprocess run. Zero means the environment
	// override or DefaultTimeout.
	Timeout time.Duration

	// Env carries tool locations from the environment.
	Env Overrides
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	if c.Env.SynthTimeout > 0 {
		return c.Env.SynthTimeout
	}
	return DefaultTimeout
}

// CanonicalName resolves aliases like xtts_v2 to an engine name. The
// empty string resolves to the default engine.
func CanonicalName(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameXTTS, "", "xtts_v2", "xtts-v2":
		return NameXTTS, true
	case NameBark:
		return NameBark, true
	}
	return "", false
}

// New builds the named engine.
func New(name string, cfg Config) (Engine, error) {
	canonical, ok := CanonicalName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)",
			ErrUnknownEngine, name, strings.Join(Names(), ", "))
	}
	switch canonical {
	case NameBark:
		return NewBark(cfg)
	default:
		return NewXTTS(cfg)
	}
}

// Names lists the available engines.
func Names() []string {
	return []string{NameXTTS, NameBark}
}
