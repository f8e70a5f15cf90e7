package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Neperienx/TTS-local/internal/story"
	"github.com/Neperienx/TTS-local/utils"
)

var storyboardCmd = &cobra.Command{
	Use:   "storyboard <story.json>",
	Short: "Preview a story script in the terminal",
	Long: paragraph(
		fmt.Sprintf("\nValidate a story script and render it as %s: every page with its image name and narration text. Catches missing images and empty pages before a long render.", keyword("a storyboard")),
	),
	Args: cobra.ExactArgs(1),
	RunE: runStoryboard,
}

func init() {
	rootCmd.AddCommand(storyboardCmd)
	storyboardCmd.Flags().StringP("style", "s", styles.AutoStyle, "style name or JSON path")
	_ = viper.BindPFlag("style", storyboardCmd.Flags().Lookup("style"))
}

func runStoryboard(_ *cobra.Command, args []string) error {
	s, err := story.Load(utils.ExpandPath(args[0]))
	if err != nil {
		return err
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		utils.GlamourStyle(styleName),
		glamour.WithWordWrap(terminalWidth()),
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}

	out, err := r.Render(storyboardMarkdown(s, args[0]))
	if err != nil {
		return fmt.Errorf("unable to render storyboard: %w", err)
	}
	fmt.Print(out)
	return nil
}

func storyboardMarkdown(s *story.Story, path string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", storyTitle(s, path))
	fmt.Fprintf(&b, "%d pages, narrated in %s.\n", len(s.Pages), s.Language)
	for i, p := range s.Pages {
		fmt.Fprintf(&b, "\n## Page %d\n\n", i+1)
		fmt.Fprintf(&b, "*%s*\n\n", filepath.Base(p.Image))
		fmt.Fprintf(&b, "%s\n", p.Text)
	}
	return b.String()
}
