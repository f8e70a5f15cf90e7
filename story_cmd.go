package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Neperienx/TTS-local/internal/engine"
	"github.com/Neperienx/TTS-local/internal/story"
	"github.com/Neperienx/TTS-local/internal/video"
	"github.com/Neperienx/TTS-local/ui"
	"github.com/Neperienx/TTS-local/utils"
)

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Render a story script into a narrated slideshow video",
	Long: paragraph(
		fmt.Sprintf("\nNarrate every page of a story script and assemble the page images into %s. Each page shows for as long as its narration runs, padded with a lead-in and a tail of silence.", keyword("a narrated video")),
	),
	Example: paragraph("tts-local story --story-file book.json\ntts-local story -f book.json --speaker-wav voices/narrator.wav --jobs 2"),
	Args:    cobra.NoArgs,
	RunE:    runStory,
}

func init() {
	rootCmd.AddCommand(storyCmd)
	addSynthFlags(storyCmd)
	storyCmd.Flags().StringP("story-file", "f", "", "story script JSON (required)")
	storyCmd.Flags().String("output-video", filepath.Join("outputs", "story.mp4"), "narrated slideshow output")
	storyCmd.Flags().String("output-audio", filepath.Join("outputs", "story_narration.wav"), "combined narration output")
	storyCmd.Flags().String("output-dir", filepath.Join("outputs", "story_assets"), "directory for page WAVs and segments")
	storyCmd.Flags().Bool("overwrite", false, "replace existing outputs")
	storyCmd.Flags().IntP("jobs", "j", 1, "parallel synthesis workers (1-4)")
	_ = storyCmd.MarkFlagRequired("story-file")
}

func runStory(cmd *cobra.Command, _ []string) error {
	fl := cmd.Flags()
	storyFile, _ := fl.GetString("story-file")
	videoOut, _ := fl.GetString("output-video")
	audioOut, _ := fl.GetString("output-audio")
	assetsDir, _ := fl.GetString("output-dir")
	overwrite, _ := fl.GetBool("overwrite")
	if fl.Changed("jobs") {
		jobs, _ = fl.GetInt("jobs")
		if jobs < 1 || jobs > 4 {
			return fmt.Errorf("jobs must be between 1 and 4, got %d", jobs)
		}
	}

	opts := synthOptionsFrom(cmd)

	device, err := engine.ResolveDevice(opts.device)
	if err != nil {
		return err
	}
	opts.device = device

	s, err := story.Load(utils.ExpandPath(storyFile))
	if err != nil {
		return err
	}

	videoOut = utils.ExpandPath(videoOut)
	audioOut = utils.ExpandPath(audioOut)
	assetsDir = utils.ExpandPath(assetsDir)
	if err := guardOutput(videoOut, overwrite); err != nil {
		return err
	}
	if err := guardOutput(audioOut, overwrite); err != nil {
		return err
	}

	overrides, err := engine.LoadOverrides()
	if err != nil {
		return err
	}
	mux := video.New(overrides.FFmpeg, 0)
	if err := mux.Validate(); err != nil {
		return fmt.Errorf("%w\n\n%s", err, paragraph(video.InstallGuidance()))
	}

	eng, closeEngine, err := buildEngine(opts)
	if err != nil {
		return err
	}
	defer closeEngine()

	// Story rendering resolves language as flag > story file > "en",
	// so only an explicit flag presets the voice here.
	voice := engine.Request{
		SpeakerWAV:    opts.speakerWAV,
		SpeakerID:     opts.speakerID,
		HistoryPrompt: opts.history,
	}
	if fl.Changed("language") {
		voice.Language = opts.language
	}

	popts := story.DefaultOptions()
	popts.Jobs = jobs
	popts.WorkDir = assetsDir
	popts.KeepWork = true

	outs := story.Outputs{Video: videoOut, Narration: audioOut}

	ctx, cancel := commandContext()
	defer cancel()

	log.Info("rendering story",
		"story", storyFile,
		"pages", len(s.Pages),
		"engine", opts.engine,
		"device", device,
		"jobs", jobs)

	if !term.IsTerminal(int(os.Stdout.Fd())) || debug {
		popts.Progress = func(e story.Event) {
			log.Info("story progress", "stage", e.Stage, "page", e.Page, "pages", e.Pages)
		}
		pipe := story.NewPipeline(eng, mux, popts)
		if err := pipe.Render(ctx, s, voice, outs); err != nil {
			return storyRenderError(err)
		}
		fmt.Printf("Wrote %s and %s\n", videoOut, audioOut)
		return nil
	}

	prog := ui.NewStoryProgram(storyTitle(s, storyFile), len(s.Pages), videoOut, cancel)
	popts.Progress = func(e story.Event) {
		prog.Send(ui.ProgressMsg(e))
	}
	pipe := story.NewPipeline(eng, mux, popts)

	done := make(chan error, 1)
	go func() {
		err := pipe.Render(ctx, s, voice, outs)
		prog.Send(ui.DoneMsg{Err: err})
		done <- err
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("unable to run progress ui: %w", err)
	}
	if err := <-done; err != nil {
		return storyRenderError(err)
	}
	return nil
}

func storyTitle(s *story.Story, path string) string {
	if s.Title != "" {
		return s.Title
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func storyRenderError(err error) error {
	if errors.Is(err, context.Canceled) {
		return errors.New("story rendering cancelled")
	}
	return err
}
