package engine

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newTestXTTS(t *testing.T, cfg Config) *XTTS {
	t.Helper()
	if cfg.Device == "" {
		cfg.Device = DeviceCPU
	}
	eng, err := NewXTTS(cfg)
	if err != nil {
		t.Fatalf("NewXTTS() error: %v", err)
	}
	return eng
}

func TestNewXTTSDefaults(t *testing.T) {
	eng := newTestXTTS(t, Config{})

	if eng.model != DefaultXTTSModel {
		t.Errorf("model = %q, want default", eng.model)
	}
	if eng.bin != "tts" {
		t.Errorf("bin = %q, want tts", eng.bin)
	}
	if eng.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", eng.timeout, DefaultTimeout)
	}
	if eng.Device() != DeviceCPU {
		t.Errorf("device = %q, want cpu", eng.Device())
	}
}

func TestNewXTTSBadDevice(t *testing.T) {
	if _, err := NewXTTS(Config{Device: "tpu"}); err == nil {
		t.Error("NewXTTS() accepted an unknown device")
	}
}

func TestXTTSArgs(t *testing.T) {
	tests := []struct {
		name   string
		device string
		req    Request
		want   []string
	}{
		{
			name:   "minimal",
			device: DeviceCPU,
			req:    Request{Text: "hello"},
			want: []string{
				"--text", "hello",
				"--model_name", DefaultXTTSModel,
				"--language_idx", "en",
				"--out_path", "/tmp/out.wav",
			},
		},
		{
			name:   "cloned voice on cuda",
			device: DeviceCUDA,
			req:    Request{Text: "bonjour", Language: "fr", SpeakerWAV: "/voices/narrator.wav"},
			want: []string{
				"--text", "bonjour",
				"--model_name", DefaultXTTSModel,
				"--language_idx", "fr",
				"--out_path", "/tmp/out.wav",
				"--speaker_wav", "/voices/narrator.wav",
				"--use_cuda", "true",
			},
		},
		{
			name:   "studio speaker",
			device: DeviceCPU,
			req:    Request{Text: "hi", SpeakerID: "Claribel Dervla"},
			want: []string{
				"--text", "hi",
				"--model_name", DefaultXTTSModel,
				"--language_idx", "en",
				"--out_path", "/tmp/out.wav",
				"--speaker_idx", "Claribel Dervla",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestXTTS(t, Config{Device: tt.device})
			got := eng.args(tt.req, "/tmp/out.wav")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("args() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestXTTSCheckRequest(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "voice.wav")
	if err := os.WriteFile(wav, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := newTestXTTS(t, Config{})

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"empty text", Request{}, ErrEmptyText},
		{"too long", Request{Text: strings.Repeat("a", xttsMaxTextChars+1)}, ErrTextTooLong},
		{"bad language", Request{Text: "hi", Language: "xx"}, ErrUnsupportedLanguage},
		{"history prompt", Request{Text: "hi", HistoryPrompt: "v2/en_speaker_6"}, ErrUnsupportedOption},
		{"missing speaker wav", Request{Text: "hi", SpeakerWAV: filepath.Join(dir, "nope.wav")}, os.ErrNotExist},
		{"valid", Request{Text: "hi", Language: "de", SpeakerWAV: wav}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eng.checkRequest(tt.req)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("checkRequest() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("checkRequest() = %v, want %v", err, tt.wantErr)
			}

			var engErr *Error
			if !errors.As(err, &engErr) || engErr.Code != CodeBadRequest {
				t.Errorf("checkRequest() error is not a bad request: %v", err)
			}
		})
	}
}

func TestXTTSLanguagesSorted(t *testing.T) {
	langs := XTTSLanguages()
	if len(langs) != len(xttsLanguages) {
		t.Fatalf("XTTSLanguages() = %d codes, want %d", len(langs), len(xttsLanguages))
	}
	for i := 1; i < len(langs); i++ {
		if langs[i-1] >= langs[i] {
			t.Fatalf("languages not sorted: %q before %q", langs[i-1], langs[i])
		}
	}
}

func TestConfigTimeout(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want time.Duration
	}{
		{"explicit", Config{Timeout: time.Minute}, time.Minute},
		{"env override", Config{Env: Overrides{SynthTimeout: 2 * time.Minute}}, 2 * time.Minute},
		{"default", Config{}, DefaultTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.timeout(); got != tt.want {
				t.Errorf("timeout() = %v, want %v", got, tt.want)
			}
		})
	}
}
