package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/Neperienx/TTS-local/internal/engine"
	"github.com/Neperienx/TTS-local/internal/video"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the synthesis environment",
	Long: paragraph(
		fmt.Sprintf("\nCheck that everything narration needs is installed: the Coqui tts CLI, the Bark module, ffmpeg, and %s. Failures come with install guidance.", keyword("a CUDA GPU if you have one")),
	),
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var (
	okMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).SetString("✓")
	failMark = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).SetString("✗")
	warnMark = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800")).SetString("!")
)

func runDoctor(*cobra.Command, []string) error {
	overrides, err := engine.LoadOverrides()
	if err != nil {
		return err
	}

	checks := []engine.ValidationResult{
		engine.CheckXTTS(overrides),
		engine.CheckBark(overrides),
		checkFFmpeg(overrides),
		engine.CheckGPU(),
		checkCache(),
	}

	failed := 0
	for _, c := range checks {
		printCheck(c)
		if !c.Available && !c.Optional {
			failed++
		}
	}

	switch failed {
	case 0:
		fmt.Println("\nReady to narrate.")
		return nil
	case 1:
		return errors.New("1 required check failed")
	default:
		return fmt.Errorf("%d required checks failed", failed)
	}
}

func checkFFmpeg(o engine.Overrides) engine.ValidationResult {
	res := engine.ValidationResult{Name: "ffmpeg", Details: map[string]string{}}

	mux := video.New(o.FFmpeg, 0)
	if err := mux.Validate(); err != nil {
		res.Err = err
		res.Guidance = video.InstallGuidance()
		return res
	}

	res.Available = true
	if v := mux.Version(); v != "" {
		res.Details["version"] = v
	}
	return res
}

func checkCache() engine.ValidationResult {
	res := engine.ValidationResult{Name: "synthesis cache", Details: map[string]string{}}

	store, err := newCacheManager()
	if err != nil {
		res.Err = err
		res.Guidance = "Point cache.dir at a writable directory, or turn the " +
			"cache off with cache.enabled: false."
		return res
	}
	defer store.Close() //nolint:errcheck

	// A write and delete proves the directory is usable, not just present.
	if err := store.Put("doctor-probe", []byte("ok")); err != nil {
		res.Err = err
		res.Guidance = "The cache directory exists but is not writable."
		return res
	}
	store.Delete("doctor-probe")

	res.Available = true
	res.Details["dir"] = store.Dir()
	if !cacheEnabled {
		res.Details["note"] = "disabled in config"
	}
	return res
}

func printCheck(res engine.ValidationResult) {
	mark := failMark
	switch {
	case res.Available:
		mark = okMark
	case res.Optional:
		mark = warnMark
	}
	fmt.Printf("%s %s", mark, res.Name)

	if len(res.Details) > 0 {
		keys := make([]string, 0, len(res.Details))
		for k := range res.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+" "+res.Details[k])
		}
		fmt.Print(detailStyle.Render(" (" + strings.Join(parts, ", ") + ")"))
	}
	fmt.Println()

	if res.Err != nil {
		fmt.Print(indent.String(detailStyle.Render(res.Err.Error())+"\n", 4))
	}
	if !res.Available && res.Guidance != "" {
		fmt.Print(indent.String(wordwrap.String(res.Guidance, 72)+"\n", 4))
	}
}
