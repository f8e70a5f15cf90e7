package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/gitcha"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/Neperienx/TTS-local/internal/engine"
	"github.com/Neperienx/TTS-local/utils"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List voices, presets, and languages",
	Long: paragraph(
		fmt.Sprintf("\nList everything a voice flag accepts: cloning WAVs under the voices directory, Bark speaker presets, and %s.", keyword("the XTTS language coverage")),
	),
	Example: paragraph("tts-local voices\ntts-local voices --filter german\ntts-local voices -e bark"),
	Args:    cobra.NoArgs,
	RunE:    runVoices,
}

func init() {
	rootCmd.AddCommand(voicesCmd)
	voicesCmd.Flags().String("filter", "", "fuzzy-filter the listing")
	voicesCmd.Flags().StringP("engine", "e", "", "only list voices for one engine")
}

// voiceRow is one listing line: the value a flag accepts plus a human
// description.
type voiceRow struct {
	name   string
	detail string
}

var (
	sectionStyle = lipgloss.NewStyle().Bold(true)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func runVoices(cmd *cobra.Command, _ []string) error {
	filter, _ := cmd.Flags().GetString("filter")
	engineFilter, _ := cmd.Flags().GetString("engine")

	only := ""
	if engineFilter != "" {
		canonical, ok := engine.CanonicalName(engineFilter)
		if !ok {
			return fmt.Errorf("unknown engine %q (available: %s)",
				engineFilter, strings.Join(engine.Names(), ", "))
		}
		only = canonical
	}

	if only == "" || only == engine.NameXTTS {
		printVoiceSection("Cloning voices (xtts --speaker-wav)", cloningVoiceRows(), filter,
			fmt.Sprintf("no WAVs under %s; drop reference recordings there to clone voices", activeVoicesDir()))
		printVoiceSection("XTTS languages (--language)", xttsLanguageRows(), filter, "")
	}
	if only == "" || only == engine.NameBark {
		printVoiceSection("Bark speaker presets (--history-prompt)", barkPresetRows(), filter, "")
	}
	return nil
}

func activeVoicesDir() string {
	if voicesDir != "" {
		return voicesDir
	}
	return defaultVoicesDir()
}

func cloningVoiceRows() []voiceRow {
	abs, err := filepath.Abs(activeVoicesDir())
	if err != nil {
		return nil
	}
	if _, err := os.Stat(abs); err != nil {
		return nil
	}

	ch, err := gitcha.FindAllFilesExcept(abs, []string{"*.wav"}, nil)
	if err != nil {
		log.Debug("error scanning voices dir", "dir", abs, "error", err)
		return nil
	}

	var rows []voiceRow
	for res := range ch {
		rel, err := filepath.Rel(abs, res.Path)
		if err != nil {
			rel = res.Path
		}
		rows = append(rows, voiceRow{
			name:   rel,
			detail: humanize.Bytes(uint64(res.Info.Size())), //nolint:gosec
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })
	return rows
}

func xttsLanguageRows() []voiceRow {
	var rows []voiceRow
	for _, code := range engine.XTTSLanguages() {
		rows = append(rows, voiceRow{name: code, detail: languageName(code)})
	}
	return rows
}

func barkPresetRows() []voiceRow {
	var rows []voiceRow
	for _, preset := range engine.BarkPresets("") {
		code := strings.TrimPrefix(preset, "v2/")
		if i := strings.Index(code, "_"); i > 0 {
			code = code[:i]
		}
		rows = append(rows, voiceRow{name: preset, detail: languageName(code)})
	}
	return rows
}

func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return display.English.Languages().Name(tag)
}

func printVoiceSection(title string, rows []voiceRow, filter, emptyNote string) {
	rows = filterRows(rows, filter)
	if filter != "" && len(rows) == 0 {
		return
	}

	fmt.Println(sectionStyle.Render(title))
	if len(rows) == 0 {
		if emptyNote != "" {
			fmt.Println("  " + detailStyle.Render(emptyNote))
		}
		fmt.Println()
		return
	}

	width := 0
	for _, r := range rows {
		if w := runewidth.StringWidth(r.name); w > width {
			width = w
		}
	}
	for _, r := range rows {
		fmt.Printf("  %s  %s\n", runewidth.FillRight(r.name, width), detailStyle.Render(r.detail))
	}
	fmt.Println()
}

func filterRows(rows []voiceRow, filter string) []voiceRow {
	if filter == "" {
		return rows
	}
	targets := make([]string, len(rows))
	for i, r := range rows {
		targets[i] = normalize(r.name + " " + r.detail)
	}
	matches := fuzzy.Find(normalize(filter), targets)
	out := make([]voiceRow, 0, len(matches))
	for _, m := range matches {
		out = append(out, rows[m.Index])
	}
	return out
}

// normalize folds accents ahead of fuzzy matching.
func normalize(in string) string {
	out, err := utils.Normalize(in)
	if err != nil {
		log.Debug("error normalizing", "string", in, "error", err)
		return in
	}
	return out
}
