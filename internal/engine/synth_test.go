package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Neperienx/TTS-local/internal/audio"
)

// fakeEngine records requests and returns a fixed-length clip per call.
type fakeEngine struct {
	maxChars int
	calls    []Request
	fail     error
}

func (f *fakeEngine) Synthesize(_ context.Context, req Request) (*audio.Clip, error) {
	f.calls = append(f.calls, req)
	if f.fail != nil {
		return nil, f.fail
	}
	return audio.Silence(audio.DefaultFormat(), 100*time.Millisecond), nil
}

func (f *fakeEngine) Info() Info {
	return Info{Name: "fake", SampleRate: audio.DefaultSampleRate, MaxTextChars: f.maxChars}
}

func (f *fakeEngine) Validate() error { return nil }
func (f *fakeEngine) Close() error    { return nil }

var _ Engine = (*fakeEngine)(nil)

func TestSynthesizeTextShort(t *testing.T) {
	fake := &fakeEngine{maxChars: 100}

	clip, err := SynthesizeText(context.Background(), fake, Request{Text: "short and sweet."})
	if err != nil {
		t.Fatalf("SynthesizeText() error: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("engine called %d times, want 1", len(fake.calls))
	}
	if clip.Duration() != 100*time.Millisecond {
		t.Errorf("clip duration = %v, want 100ms", clip.Duration())
	}
}

func TestSynthesizeTextChunks(t *testing.T) {
	fake := &fakeEngine{maxChars: 40}
	text := "The first sentence sits here. A second one follows it. And here is a third."

	clip, err := SynthesizeText(context.Background(), fake, Request{
		Text:     text,
		Language: "en",
	})
	if err != nil {
		t.Fatalf("SynthesizeText() error: %v", err)
	}
	if len(fake.calls) < 2 {
		t.Fatalf("engine called %d times, want chunked calls", len(fake.calls))
	}

	var rebuilt []string
	for _, call := range fake.calls {
		if len(call.Text) > 40 {
			t.Errorf("chunk over limit: %q", call.Text)
		}
		if call.Language != "en" {
			t.Errorf("chunk lost language: %+v", call)
		}
		rebuilt = append(rebuilt, call.Text)
	}
	if got := strings.Join(rebuilt, " "); got != text {
		t.Errorf("chunks reassemble to %q, want %q", got, text)
	}

	wantDur := time.Duration(len(fake.calls)) * 100 * time.Millisecond
	if clip.Duration() != wantDur {
		t.Errorf("joined clip duration = %v, want %v", clip.Duration(), wantDur)
	}
}

func TestSynthesizeTextEmpty(t *testing.T) {
	fake := &fakeEngine{maxChars: 40}
	if _, err := SynthesizeText(context.Background(), fake, Request{Text: "   "}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("SynthesizeText() = %v, want ErrEmptyText", err)
	}
}

func TestSynthesizeTextChunkError(t *testing.T) {
	boom := errors.New("model exploded")
	fake := &fakeEngine{maxChars: 10, fail: boom}

	_, err := SynthesizeText(context.Background(), fake, Request{Text: "word one. word two. word three."})
	if !errors.Is(err, boom) {
		t.Errorf("SynthesizeText() = %v, want wrapped engine error", err)
	}
}

func TestRequestVoice(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"default", Request{}, "default"},
		{"wav", Request{SpeakerWAV: "/v/n.wav"}, "wav:/v/n.wav"},
		{"id", Request{SpeakerID: "Ana Florence"}, "id:Ana Florence"},
		{"preset", Request{HistoryPrompt: "v2/en_speaker_6"}, "preset:v2/en_speaker_6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Voice(); got != tt.want {
				t.Errorf("Voice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewUnknownEngine(t *testing.T) {
	_, err := New("espeak", Config{Device: DeviceCPU})
	if !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("New(espeak) = %v, want ErrUnknownEngine", err)
	}
	if !strings.Contains(err.Error(), "xtts") || !strings.Contains(err.Error(), "bark") {
		t.Errorf("error does not list available engines: %v", err)
	}
}

func TestNewAliases(t *testing.T) {
	for _, name := range []string{"xtts", "XTTS", "xtts_v2", "xtts-v2", ""} {
		eng, err := New(name, Config{Device: DeviceCPU})
		if err != nil {
			t.Fatalf("New(%q) error: %v", name, err)
		}
		if eng.Info().Name != NameXTTS {
			t.Errorf("New(%q) built %q, want xtts", name, eng.Info().Name)
		}
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"xtts", NameXTTS, true},
		{" Bark ", NameBark, true},
		{"XTTS_V2", NameXTTS, true},
		{"", NameXTTS, true},
		{"espeak", "", false},
	}
	for _, tt := range tests {
		got, ok := CanonicalName(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CanonicalName(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("exit status 1")
	err := newError(CodeSynthesis, NameXTTS, "subprocess failed", cause)

	if !strings.Contains(err.Error(), "xtts") || !strings.Contains(err.Error(), "SYNTHESIS_FAILED") {
		t.Errorf("Error() missing fields: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("Unwrap() does not reach the cause")
	}
	if !err.Retryable() {
		t.Error("synthesis failure should be retryable")
	}
	if badRequest(NameBark, ErrEmptyText).Retryable() {
		t.Error("bad request should not be retryable")
	}
}

func TestResolveDevice(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"cpu", DeviceCPU, false},
		{"CPU", DeviceCPU, false},
		{"cuda", DeviceCUDA, false},
		{" cuda ", DeviceCUDA, false},
		{"tpu", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ResolveDevice(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveDevice(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveDevice(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
