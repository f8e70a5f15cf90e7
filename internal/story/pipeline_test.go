package story

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Neperienx/TTS-local/internal/audio"
	"github.com/Neperienx/TTS-local/internal/engine"
)

// fakeSynth produces silence instead of speech. Sample rates are taken
// per call from rates, with the last entry repeating.
type fakeSynth struct {
	mu    sync.Mutex
	calls int
	rates []int
	fail  int // 1-based call to fail on, 0 for never
}

func (f *fakeSynth) Synthesize(_ context.Context, req engine.Request) (*audio.Clip, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()

	if f.fail != 0 && n == f.fail {
		return nil, errors.New("synthesis exploded")
	}

	rate := audio.DefaultSampleRate
	if len(f.rates) > 0 {
		i := n - 1
		if i >= len(f.rates) {
			i = len(f.rates) - 1
		}
		rate = f.rates[i]
	}
	format := audio.Format{SampleRate: rate, Channels: 1, BitDepth: 16}
	return audio.Silence(format, 100*time.Millisecond), nil
}

func (f *fakeSynth) Info() engine.Info {
	return engine.Info{Name: "fake", SampleRate: audio.DefaultSampleRate, MaxTextChars: 10000}
}

func (f *fakeSynth) Validate() error { return nil }
func (f *fakeSynth) Close() error    { return nil }

type muxCall struct {
	kind     string
	image    string
	duration time.Duration
	out      string
}

// fakeMux records calls instead of running ffmpeg.
type fakeMux struct {
	mu    sync.Mutex
	calls []muxCall
	fail  bool
}

func (f *fakeMux) Segment(_ context.Context, image, _ string, duration time.Duration, out string) error {
	if f.fail {
		return errors.New("ffmpeg exploded")
	}
	f.mu.Lock()
	f.calls = append(f.calls, muxCall{kind: "segment", image: image, duration: duration, out: out})
	f.mu.Unlock()
	return os.WriteFile(out, []byte("mp4"), 0o644)
}

func (f *fakeMux) Concat(_ context.Context, listFile, out string) error {
	if f.fail {
		return errors.New("ffmpeg exploded")
	}
	f.mu.Lock()
	f.calls = append(f.calls, muxCall{kind: "concat", image: listFile, out: out})
	f.mu.Unlock()
	return os.WriteFile(out, []byte("mp4"), 0o644)
}

func testStory(t *testing.T, pages int) *Story {
	t.Helper()
	dir := t.TempDir()
	s := &Story{Title: "Test", Language: "en"}
	for i := 0; i < pages; i++ {
		img := filepath.Join(dir, fmt.Sprintf("img_%d.png", i))
		if err := os.WriteFile(img, []byte("png"), 0o644); err != nil {
			t.Fatal(err)
		}
		s.Pages = append(s.Pages, Page{Image: img, Text: fmt.Sprintf("Page %d text.", i+1)})
	}
	return s
}

func TestRender(t *testing.T) {
	s := testStory(t, 3)
	workDir := t.TempDir()
	outDir := t.TempDir()
	outs := Outputs{
		Video:     filepath.Join(outDir, "story.mp4"),
		Narration: filepath.Join(outDir, "story_narration.wav"),
	}

	var (
		mu     sync.Mutex
		events []Event
	)
	opts := Options{
		Jobs:      2,
		WorkDir:   workDir,
		PreVoice:  50 * time.Millisecond,
		PostVoice: 200 * time.Millisecond,
		Progress: func(e Event) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		},
	}

	synth := &fakeSynth{}
	mux := &fakeMux{}
	p := NewPipeline(synth, mux, opts)

	if err := p.Render(context.Background(), s, engine.Request{}, outs); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	// Every page gets a padded narration WAV in the work directory.
	wantDur := 50*time.Millisecond + 100*time.Millisecond + 200*time.Millisecond
	for i := 1; i <= 3; i++ {
		clip, err := audio.ReadFile(filepath.Join(workDir, fmt.Sprintf("page_%02d.wav", i)))
		if err != nil {
			t.Fatalf("page %d wav: %v", i, err)
		}
		if clip.Duration() != wantDur {
			t.Errorf("page %d duration = %v, want %v", i, clip.Duration(), wantDur)
		}
	}

	data, err := os.ReadFile(filepath.Join(workDir, "segments.txt"))
	if err != nil {
		t.Fatal(err)
	}
	wantList := "file 'segment_01.mp4'\nfile 'segment_02.mp4'\nfile 'segment_03.mp4'\n"
	if string(data) != wantList {
		t.Errorf("segments.txt = %q, want %q", string(data), wantList)
	}

	narration, err := audio.ReadFile(outs.Narration)
	if err != nil {
		t.Fatalf("narration wav: %v", err)
	}
	if narration.Duration() != 3*wantDur {
		t.Errorf("narration duration = %v, want %v", narration.Duration(), 3*wantDur)
	}

	mux.mu.Lock()
	defer mux.mu.Unlock()
	if len(mux.calls) != 4 {
		t.Fatalf("muxer calls = %d, want 3 segments + 1 concat", len(mux.calls))
	}
	for i := 0; i < 3; i++ {
		c := mux.calls[i]
		if c.kind != "segment" {
			t.Errorf("call %d kind = %q", i, c.kind)
		}
		if c.image != s.Pages[i].Image {
			t.Errorf("call %d image = %q, want %q", i, c.image, s.Pages[i].Image)
		}
		if c.duration != wantDur {
			t.Errorf("call %d duration = %v, want %v", i, c.duration, wantDur)
		}
	}
	last := mux.calls[3]
	if last.kind != "concat" || last.out != outs.Video {
		t.Errorf("final call = %+v, want concat to %q", last, outs.Video)
	}

	mu.Lock()
	defer mu.Unlock()
	counts := map[Stage]int{}
	for _, e := range events {
		counts[e.Stage]++
	}
	if counts[StageSynthesize] != 3 || counts[StageSegment] != 3 || counts[StageConcat] != 1 || counts[StageDone] != 1 {
		t.Errorf("event counts = %v", counts)
	}
	final := events[len(events)-1]
	if final.Stage != StageDone || final.Path != outs.Video {
		t.Errorf("final event = %+v", final)
	}
}

func TestRenderFillsLanguageFromStory(t *testing.T) {
	s := testStory(t, 1)
	s.Language = "fr"

	var got engine.Request
	synth := &recordingSynth{onReq: func(r engine.Request) { got = r }}
	p := NewPipeline(synth, &fakeMux{}, Options{Jobs: 1, WorkDir: t.TempDir()})

	out := Outputs{Video: filepath.Join(t.TempDir(), "out.mp4")}
	if err := p.Render(context.Background(), s, engine.Request{SpeakerID: "Ana Florence"}, out); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if got.Language != "fr" {
		t.Errorf("request language = %q, want fr", got.Language)
	}
	if got.SpeakerID != "Ana Florence" {
		t.Errorf("request speaker = %q", got.SpeakerID)
	}
	if got.Text == "" {
		t.Error("request text is empty")
	}
}

func TestRenderVoiceLanguageWins(t *testing.T) {
	s := testStory(t, 1)
	s.Language = "fr"

	var got engine.Request
	synth := &recordingSynth{onReq: func(r engine.Request) { got = r }}
	p := NewPipeline(synth, &fakeMux{}, Options{Jobs: 1, WorkDir: t.TempDir()})

	out := Outputs{Video: filepath.Join(t.TempDir(), "out.mp4")}
	if err := p.Render(context.Background(), s, engine.Request{Language: "de"}, out); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got.Language != "de" {
		t.Errorf("request language = %q, want de", got.Language)
	}
}

// recordingSynth captures the last request it saw.
type recordingSynth struct {
	fakeSynth
	onReq func(engine.Request)
}

func (r *recordingSynth) Synthesize(ctx context.Context, req engine.Request) (*audio.Clip, error) {
	if r.onReq != nil {
		r.onReq(req)
	}
	return r.fakeSynth.Synthesize(ctx, req)
}

func TestRenderSampleRateMismatch(t *testing.T) {
	s := testStory(t, 2)
	synth := &fakeSynth{rates: []int{24000, 22050}}
	p := NewPipeline(synth, &fakeMux{}, Options{Jobs: 1, WorkDir: t.TempDir()})

	err := p.Render(context.Background(), s, engine.Request{}, Outputs{Video: filepath.Join(t.TempDir(), "out.mp4")})
	if err == nil {
		t.Fatal("Render() expected sample rate error")
	}
	if !strings.Contains(err.Error(), "same sample rate") {
		t.Errorf("Render() error = %v", err)
	}
}

func TestRenderSynthesisError(t *testing.T) {
	s := testStory(t, 3)
	synth := &fakeSynth{fail: 2}
	p := NewPipeline(synth, &fakeMux{}, Options{Jobs: 1, WorkDir: t.TempDir()})

	err := p.Render(context.Background(), s, engine.Request{}, Outputs{Video: filepath.Join(t.TempDir(), "out.mp4")})
	if err == nil {
		t.Fatal("Render() expected synthesis error")
	}
	if !strings.Contains(err.Error(), "page 2") {
		t.Errorf("Render() error = %v, want page 2 attribution", err)
	}
}

func TestRenderCancelled(t *testing.T) {
	s := testStory(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(&fakeSynth{}, &fakeMux{}, Options{Jobs: 1, WorkDir: t.TempDir()})
	err := p.Render(ctx, s, engine.Request{}, Outputs{Video: filepath.Join(t.TempDir(), "out.mp4")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}

func TestRenderMuxerError(t *testing.T) {
	s := testStory(t, 1)
	p := NewPipeline(&fakeSynth{}, &fakeMux{fail: true}, Options{Jobs: 1, WorkDir: t.TempDir()})

	err := p.Render(context.Background(), s, engine.Request{}, Outputs{Video: filepath.Join(t.TempDir(), "out.mp4")})
	if err == nil || !strings.Contains(err.Error(), "page 1") {
		t.Errorf("Render() error = %v, want page 1 attribution", err)
	}
}
