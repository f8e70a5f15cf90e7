package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/Neperienx/TTS-local/internal/audio"
)

const (
	barkSampleRate = 24000

	// Bark drifts into babble past roughly 13 seconds of speech, so
	// inputs are kept to a couple of sentences and longer texts are
	// chunked upstream.
	barkMaxTextChars = 220
)

// barkPresetLanguages are the prefixes in Suno's speaker library. Each
// has presets v2/<lang>_speaker_0 through _9.
var barkPresetLanguages = []string{
	"en", "de", "es", "fr", "hi", "it", "ja", "ko", "pl", "pt", "ru", "tr", "zh",
}

// Bark drives Suno's generative engine via python -m bark. It has no
// language parameter; the model infers language and delivery from the
// text itself. Voices are picked with history prompt presets.
type Bark struct {
	python  string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewBark builds the Bark engine.
func NewBark(cfg Config) (*Bark, error) {
	python := cfg.Env.Python
	if python == "" {
		python = "python3"
	}

	return &Bark{
		python:  python,
		timeout: cfg.timeout(),
		// Same launch pacing as xtts: each run loads the full model,
		// and simultaneous loads from story workers spike memory.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

// Synthesize runs one bark invocation and reads back the WAV it wrote.
func (e *Bark) Synthesize(ctx context.Context, req Request) (*audio.Clip, error) {
	if err := e.checkRequest(req); err != nil {
		return nil, err
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, classify(NameBark, err)
	}

	dir, err := os.MkdirTemp("", "tts-local-bark-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	outPath := filepath.Join(dir, "out.wav")
	if _, _, err := run(ctx, e.timeout, e.python, e.args(req, outPath)...); err != nil {
		return nil, classify(NameBark, err)
	}

	if st, err := os.Stat(outPath); err != nil || st.Size() == 0 {
		return nil, newError(CodeBadOutput, NameBark, "no wav written", ErrNoOutput)
	}

	clip, err := audio.ReadFile(outPath)
	if err != nil {
		return nil, newError(CodeBadOutput, NameBark, "unreadable wav output", err)
	}
	return clip, nil
}

func (e *Bark) args(req Request, outPath string) []string {
	args := []string{
		"-m", "bark",
		"--text", req.Text,
		"--output_filename", outPath,
	}
	if req.HistoryPrompt != "" {
		args = append(args, "--history_prompt", req.HistoryPrompt)
	}
	return args
}

func (e *Bark) checkRequest(req Request) error {
	if req.Text == "" {
		return badRequest(NameBark, ErrEmptyText)
	}
	if len(req.Text) > barkMaxTextChars {
		return badRequest(NameBark, fmt.Errorf("%w: %d chars (max %d)",
			ErrTextTooLong, len(req.Text), barkMaxTextChars))
	}
	if req.SpeakerWAV != "" {
		return badRequest(NameBark, fmt.Errorf(
			"%w: voice cloning is an xtts feature, pick a bark preset with --history-prompt",
			ErrUnsupportedOption))
	}
	if req.SpeakerID != "" {
		return badRequest(NameBark, fmt.Errorf(
			"%w: speaker ids are an xtts feature, pick a bark preset with --history-prompt",
			ErrUnsupportedOption))
	}
	return nil
}

// Info implements Engine.
func (e *Bark) Info() Info {
	return Info{
		Name:         NameBark,
		SampleRate:   barkSampleRate,
		MaxTextChars: barkMaxTextChars,
		NeedsGPU:     true,
	}
}

// Validate checks the bark module imports in the configured Python.
func (e *Bark) Validate() error {
	path, err := exec.LookPath(e.python)
	if err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrEngineUnavailable, e.python)
	}

	// Importing bark pulls in torch, which can take a while on cold
	// filesystem caches.
	if _, _, err := run(context.Background(), time.Minute, path, "-c", "import bark"); err != nil {
		return fmt.Errorf("%w: python cannot import bark: %v", ErrEngineUnavailable, err)
	}
	return nil
}

// Close implements Engine.
func (e *Bark) Close() error {
	return nil
}

// BarkPresets lists the official speaker presets, grouped by language
// prefix. An empty language lists everything.
func BarkPresets(language string) []string {
	var out []string
	for _, lang := range barkPresetLanguages {
		if language != "" && lang != language {
			continue
		}
		for i := 0; i <= 9; i++ {
			out = append(out, fmt.Sprintf("v2/%s_speaker_%d", lang, i))
		}
	}
	return out
}

var _ Engine = (*Bark)(nil)
