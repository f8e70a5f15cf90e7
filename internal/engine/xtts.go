package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/Neperienx/TTS-local/internal/audio"
)

// DefaultXTTSModel is the multilingual XTTS-v2 checkpoint Coqui ships.
const DefaultXTTSModel = "tts_models/multilingual/multi-dataset/xtts_v2"

const (
	xttsSampleRate   = 24000
	xttsMaxTextChars = 2000
)

// xttsLanguages are the codes the multilingual XTTS-v2 model accepts.
var xttsLanguages = map[string]bool{
	"en": true, "es": true, "fr": true, "de": true, "it": true,
	"pt": true, "pl": true, "tr": true, "ru": true, "nl": true,
	"cs": true, "ar": true, "zh-cn": true, "hu": true, "ko": true,
	"ja": true, "hi": true,
}

// XTTS drives Coqui's tts CLI. A fresh process runs per synthesis; the
// CLI caches the model on disk after the first download, so process
// startup dominates, not the network.
type XTTS struct {
	model   string
	device  string
	bin     string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewXTTS builds the XTTS engine, resolving the device immediately so
// an invalid --device fails before any synthesis starts.
func NewXTTS(cfg Config) (*XTTS, error) {
	device, err := ResolveDevice(cfg.Device)
	if err != nil {
		return nil, err
	}

	model := cfg.ModelName
	if model == "" {
		model = DefaultXTTSModel
	}

	bin := cfg.Env.TTSBin
	if bin == "" {
		bin = "tts"
	}

	return &XTTS{
		model:   model,
		device:  device,
		bin:     bin,
		timeout: cfg.timeout(),
		// Every invocation loads the 2 GB model from scratch.
		// Staggering launches keeps concurrent story workers from
		// stacking loads into memory at the same instant.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

// Synthesize runs one tts CLI invocation and reads back the WAV it
// wrote. Output goes to a scratch directory, never the caller's target
// path, so a failed run cannot leave a partial file behind.
func (e *XTTS) Synthesize(ctx context.Context, req Request) (*audio.Clip, error) {
	if err := e.checkRequest(req); err != nil {
		return nil, err
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, classify(NameXTTS, err)
	}

	dir, err := os.MkdirTemp("", "tts-local-xtts-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	outPath := filepath.Join(dir, "out.wav")
	if _, _, err := run(ctx, e.timeout, e.bin, e.args(req, outPath)...); err != nil {
		return nil, classify(NameXTTS, err)
	}

	if st, err := os.Stat(outPath); err != nil || st.Size() == 0 {
		return nil, newError(CodeBadOutput, NameXTTS, "no wav written", ErrNoOutput)
	}

	clip, err := audio.ReadFile(outPath)
	if err != nil {
		return nil, newError(CodeBadOutput, NameXTTS, "unreadable wav output", err)
	}
	return clip, nil
}

// xttsLanguage maps bare codes to the names the model uses. Coqui
// ships Chinese as zh-cn only.
func xttsLanguage(lang string) string {
	if lang == "zh" {
		return "zh-cn"
	}
	return lang
}

func (e *XTTS) args(req Request, outPath string) []string {
	lang := xttsLanguage(req.Language)
	if lang == "" {
		lang = "en"
	}

	args := []string{
		"--text", req.Text,
		"--model_name", e.model,
		"--language_idx", lang,
		"--out_path", outPath,
	}
	if req.SpeakerWAV != "" {
		args = append(args, "--speaker_wav", req.SpeakerWAV)
	}
	if req.SpeakerID != "" {
		args = append(args, "--speaker_idx", req.SpeakerID)
	}
	if e.device == DeviceCUDA {
		args = append(args, "--use_cuda", "true")
	}
	return args
}

func (e *XTTS) checkRequest(req Request) error {
	if req.Text == "" {
		return badRequest(NameXTTS, ErrEmptyText)
	}
	if len(req.Text) > xttsMaxTextChars {
		return badRequest(NameXTTS, fmt.Errorf("%w: %d chars (max %d)",
			ErrTextTooLong, len(req.Text), xttsMaxTextChars))
	}
	if req.Language != "" && !xttsLanguages[xttsLanguage(req.Language)] {
		return badRequest(NameXTTS, fmt.Errorf("%w: %q (supported: %v)",
			ErrUnsupportedLanguage, req.Language, XTTSLanguages()))
	}
	if req.HistoryPrompt != "" {
		return badRequest(NameXTTS, fmt.Errorf(
			"%w: history prompts select bark voices, use --speaker-wav or --speaker-id",
			ErrUnsupportedOption))
	}
	if req.SpeakerWAV != "" {
		if _, err := os.Stat(req.SpeakerWAV); err != nil {
			return badRequest(NameXTTS, fmt.Errorf("speaker wav: %w", err))
		}
	}
	return nil
}

// Info implements Engine.
func (e *XTTS) Info() Info {
	return Info{
		Name:         NameXTTS,
		SampleRate:   xttsSampleRate,
		MaxTextChars: xttsMaxTextChars,
		NeedsGPU:     false,
	}
}

// Validate checks the tts CLI is on PATH and executable.
func (e *XTTS) Validate() error {
	path, err := exec.LookPath(e.bin)
	if err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrEngineUnavailable, e.bin)
	}

	// Loading argparse pulls in the TTS package, which proves the
	// Python environment is intact.
	if _, _, err := run(context.Background(), time.Minute, path, "--help"); err != nil {
		return fmt.Errorf("%w: cannot execute %s: %v", ErrEngineUnavailable, e.bin, err)
	}
	return nil
}

// Close implements Engine. Nothing persists between subprocess runs.
func (e *XTTS) Close() error {
	return nil
}

// Device returns the resolved device the engine synthesizes on.
func (e *XTTS) Device() string {
	return e.device
}

// XTTSLanguages lists the supported language codes, sorted.
func XTTSLanguages() []string {
	out := make([]string, 0, len(xttsLanguages))
	for code := range xttsLanguages {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

var _ Engine = (*XTTS)(nil)
