package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/Neperienx/TTS-local/internal/audio"
	"github.com/Neperienx/TTS-local/internal/engine"
	"github.com/Neperienx/TTS-local/internal/speech"
	"github.com/Neperienx/TTS-local/utils"
)

var speakCmd = &cobra.Command{
	Use:   "speak",
	Short: "Synthesize narration from text or markdown",
	Long: paragraph(
		fmt.Sprintf("\nRead a text or markdown file and synthesize it %s. Markdown is reduced to its speakable text first: code blocks, link targets, and image URLs never reach the model.", keyword("into a WAV file")),
	),
	Example: paragraph("tts-local speak --input-file notes.md\ntts-local speak -i story.txt -e bark --history-prompt v2/en_speaker_6\ncat draft.txt | tts-local speak --play"),
	Args:    cobra.NoArgs,
	RunE:    runSpeak,
}

func init() {
	rootCmd.AddCommand(speakCmd)
	addSynthFlags(speakCmd)
	speakCmd.Flags().StringP("input-file", "i", "", "text or markdown to narrate (- reads stdin)")
	speakCmd.Flags().StringP("output-file", "o", "", "output WAV path (default outputs/<engine>_output.wav)")
	speakCmd.Flags().Bool("overwrite", false, "replace the output file if it exists")
	speakCmd.Flags().Bool("play", false, "play the narration after writing it")
	speakCmd.Flags().Bool("watch", false, "re-synthesize whenever the input file changes")
}

func runSpeak(cmd *cobra.Command, _ []string) error {
	fl := cmd.Flags()
	inputFile, _ := fl.GetString("input-file")
	outputFile, _ := fl.GetString("output-file")
	overwrite, _ := fl.GetBool("overwrite")
	play, _ := fl.GetBool("play")
	watch, _ := fl.GetBool("watch")

	opts := synthOptionsFrom(cmd)

	if inputFile == "" {
		// A pipe works without the flag, same as passing "-".
		if pipe, err := stdinIsPipe(); err != nil {
			return err
		} else if pipe {
			inputFile = "-"
		} else {
			return errors.New("no input: pass --input-file or pipe text on stdin")
		}
	}
	if watch && inputFile == "-" {
		return errors.New("--watch needs a file to watch, not stdin")
	}

	device, err := engine.ResolveDevice(opts.device)
	if err != nil {
		return err
	}
	opts.device = device

	if outputFile == "" {
		canonical, _ := engine.CanonicalName(opts.engine)
		outputFile = filepath.Join("outputs", canonical+"_output.wav")
	}
	outputFile = utils.ExpandPath(outputFile)
	if err := guardOutput(outputFile, overwrite); err != nil {
		return err
	}

	eng, closeEngine, err := buildEngine(opts)
	if err != nil {
		return err
	}
	defer closeEngine()

	ctx, cancel := commandContext()
	defer cancel()

	var player *audio.Player
	if play {
		player = audio.NewPlayer()
		defer player.Close() //nolint:errcheck
	}

	speakOnce := func() error {
		text, err := readSpeakInput(inputFile)
		if err != nil {
			return err
		}

		start := time.Now()
		clip, err := engine.SynthesizeText(ctx, eng, engine.Request{
			Text:          text,
			Language:      opts.language,
			SpeakerWAV:    opts.speakerWAV,
			SpeakerID:     opts.speakerID,
			HistoryPrompt: opts.history,
		})
		if err != nil {
			return err
		}

		if err := audio.WriteFile(outputFile, clip); err != nil {
			return err
		}

		var size uint64
		if st, err := os.Stat(outputFile); err == nil {
			size = uint64(st.Size()) //nolint:gosec
		}
		log.Info("narration written",
			"engine", opts.engine,
			"device", device,
			"audio", clip.Duration().Round(10*time.Millisecond),
			"took", time.Since(start).Round(time.Millisecond),
			"bytes", size,
			"path", outputFile)
		fmt.Printf("Wrote %s of narration to %s (%s)\n",
			clip.Duration().Round(10*time.Millisecond), keyword(outputFile), humanize.Bytes(size))

		if player != nil {
			if err := player.Play(ctx, clip); err != nil {
				return fmt.Errorf("unable to play narration: %w", err)
			}
		}
		return nil
	}

	if !watch {
		return speakOnce()
	}
	return watchAndSpeak(ctx, inputFile, speakOnce)
}

// readSpeakInput loads the input and, for markdown, reduces it to
// speakable text.
func readSpeakInput(path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("unable to read stdin: %w", err)
		}
	} else {
		raw, err = os.ReadFile(utils.ExpandPath(path))
		if err != nil {
			return "", fmt.Errorf("unable to read input: %w", err)
		}
	}

	if utils.IsMarkdownFile(path) {
		blocks, err := speech.FromMarkdown(utils.RemoveFrontmatter(raw))
		if err != nil {
			return "", fmt.Errorf("unable to parse markdown: %w", err)
		}
		text := speech.CleanForSpeech(speech.Flatten(blocks))
		if text == "" {
			return "", errors.New("no speakable text in markdown input")
		}
		return text, nil
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", errors.New("input is empty")
	}
	return text, nil
}

// watchAndSpeak re-runs synthesis when the input changes. The watch is
// held on the directory: editors replace files on save, which would
// drop a watch held on the old inode.
func watchAndSpeak(ctx context.Context, path string, speakOnce func() error) error {
	if err := speakOnce(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to watch input: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	abs, err := filepath.Abs(utils.ExpandPath(path))
	if err != nil {
		return fmt.Errorf("unable to resolve input path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("unable to watch input: %w", err)
	}

	// Editors fire bursts of events per save; the limiter collapses a
	// burst into one synthesis run.
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)

	log.Info("watching input", "path", abs)
	fmt.Println("Watching", path, "(ctrl-c to stop)")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if !limiter.Allow() {
				continue
			}
			log.Debug("input changed", "op", event.Op.String())
			if err := speakOnce(); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				// Keep watching: one bad save should not end the session.
				log.Error("re-synthesis failed", "error", err)
				fmt.Fprintln(os.Stderr, "Error:", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watch error", "error", err)
		}
	}
}
