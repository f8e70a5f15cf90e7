package story

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Neperienx/TTS-local/internal/audio"
	"github.com/Neperienx/TTS-local/internal/engine"
	"github.com/Neperienx/TTS-local/internal/speech"
	"github.com/Neperienx/TTS-local/internal/video"
)

// Silence wrapped around each page's narration. The lead-in gives the
// viewer a beat to take in the image, the tail carries the image while
// the sentence settles.
const (
	DefaultPreVoice  = 2 * time.Second
	DefaultPostVoice = 5 * time.Second
)

// Stage identifies which part of the run an Event reports on.
type Stage string

const (
	StageSynthesize Stage = "synthesize"
	StageSegment    Stage = "segment"
	StageConcat     Stage = "concat"
	StageDone       Stage = "done"
)

// Event reports pipeline progress. Page is 1-based and zero for
// whole-run stages.
type Event struct {
	Stage Stage
	Page  int
	Pages int
	Path  string
}

// Outputs are the files a render produces. An empty Narration skips
// the combined audio.
type Outputs struct {
	Video     string
	Narration string
}

// Options tune a pipeline run.
type Options struct {
	Jobs      int           // concurrent synthesis workers
	WorkDir   string        // page WAVs and segments land here; empty means a temp dir
	KeepWork  bool          // keep intermediate files after the run
	PreVoice  time.Duration // silence before each page's narration
	PostVoice time.Duration // silence after each page's narration

	// Progress, when set, receives an Event as each stage of the run
	// completes. It may be called from multiple goroutines.
	Progress func(Event)
}

// DefaultOptions returns the standard run configuration.
func DefaultOptions() Options {
	return Options{
		Jobs:      1,
		PreVoice:  DefaultPreVoice,
		PostVoice: DefaultPostVoice,
	}
}

// Muxer is the video assembly surface the pipeline drives. It is
// satisfied by *video.Muxer.
type Muxer interface {
	Segment(ctx context.Context, image, audioPath string, duration time.Duration, out string) error
	Concat(ctx context.Context, listFile, out string) error
}

var _ Muxer = (*video.Muxer)(nil)

// Pipeline narrates story pages with a synthesis engine and assembles
// the slideshow with ffmpeg.
type Pipeline struct {
	engine engine.Engine
	muxer  Muxer
	opts   Options
}

// NewPipeline builds a pipeline over the given engine and muxer.
func NewPipeline(eng engine.Engine, mux Muxer, opts Options) *Pipeline {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	return &Pipeline{engine: eng, muxer: mux, opts: opts}
}

// Render narrates every page of s, assembles the slideshow video, and
// optionally writes the combined narration WAV. The voice request
// supplies speaker options; its text is ignored and its language, when
// empty, comes from the story.
func (p *Pipeline) Render(ctx context.Context, s *Story, voice engine.Request, out Outputs) error {
	if len(s.Pages) == 0 {
		return ErrNoPages
	}

	runID := uuid.New().String()
	workDir := p.opts.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "tts-local", "story-"+runID[:8])
		if !p.opts.KeepWork {
			defer os.RemoveAll(workDir)
		}
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}

	log.Debug("story run", "id", runID, "pages", len(s.Pages), "jobs", p.opts.Jobs, "workdir", workDir)

	clips, err := p.synthesizePages(ctx, s, voice)
	if err != nil {
		return err
	}

	format := clips[0].Format
	for i, c := range clips {
		if c.Format != format {
			return fmt.Errorf("page %d: all generated audio must use the same sample rate", i+1)
		}
	}

	padded := make([]*audio.Clip, len(s.Pages))
	names := make([]string, len(s.Pages))
	for i, page := range s.Pages {
		padded[i] = audio.Pad(clips[i], p.opts.PreVoice, p.opts.PostVoice)

		wavPath := filepath.Join(workDir, fmt.Sprintf("page_%02d.wav", i+1))
		if err := audio.WriteFile(wavPath, padded[i]); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}

		segName := fmt.Sprintf("segment_%02d.mp4", i+1)
		segPath := filepath.Join(workDir, segName)
		if err := p.muxer.Segment(ctx, page.Image, wavPath, padded[i].Duration(), segPath); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}

		names[i] = segName
		p.emit(Event{Stage: StageSegment, Page: i + 1, Pages: len(s.Pages)})
	}

	listPath := filepath.Join(workDir, "segments.txt")
	if err := video.WriteConcatList(listPath, names); err != nil {
		return err
	}
	if err := p.muxer.Concat(ctx, listPath, out.Video); err != nil {
		return fmt.Errorf("join segments: %w", err)
	}
	p.emit(Event{Stage: StageConcat, Pages: len(s.Pages)})

	if out.Narration != "" {
		narration, err := audio.Concat(padded...)
		if err != nil {
			return fmt.Errorf("join narration: %w", err)
		}
		if err := audio.WriteFile(out.Narration, narration); err != nil {
			return fmt.Errorf("write narration: %w", err)
		}
	}

	p.emit(Event{Stage: StageDone, Pages: len(s.Pages), Path: out.Video})
	return nil
}

// synthesizePages narrates all pages with Jobs concurrent workers and
// returns the clips in page order. The first synthesis failure cancels
// the remaining work.
func (p *Pipeline) synthesizePages(ctx context.Context, s *Story, voice engine.Request) ([]*audio.Clip, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := p.opts.Jobs
	if jobs > len(s.Pages) {
		jobs = len(s.Pages)
	}

	clips := make([]*audio.Clip, len(s.Pages))
	queue := newJobQueue(jobs * 2)
	defer queue.close()

	var (
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	var wg sync.WaitGroup
	for w := 0; w < jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				j, ok := queue.dequeue()
				if !ok {
					return
				}
				if ctx.Err() != nil {
					continue
				}
				clip, err := engine.SynthesizeText(ctx, p.engine, j.req)
				if err != nil {
					fail(fmt.Errorf("page %d: %w", j.page+1, err))
					continue
				}
				clips[j.page] = clip
				p.emit(Event{Stage: StageSynthesize, Page: j.page + 1, Pages: len(s.Pages)})
			}
		}()
	}

	go func() {
		for i, page := range s.Pages {
			req := voice
			req.Text = speech.CleanForSpeech(page.Text)
			if req.Language == "" {
				req.Language = s.Language
			}
			if err := queue.enqueue(pageJob{page: i, req: req}); err != nil {
				return
			}
		}
		queue.close()
	}()

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return clips, nil
}

func (p *Pipeline) emit(e Event) {
	if p.opts.Progress != nil {
		p.opts.Progress(e)
	}
}
