package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/Neperienx/TTS-local/internal/speech"
	"github.com/Neperienx/TTS-local/internal/story"
	"github.com/Neperienx/TTS-local/utils"
)

var scriptCmd = &cobra.Command{
	Use:   "script <story.json|doc.md>",
	Short: "Print the narration script",
	Long: paragraph(
		fmt.Sprintf("\nPrint exactly %s: numbered page texts for a story script, the speakable text for markdown. Useful for proofreading what the voice will say.", keyword("what will be narrated")),
	),
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(scriptCmd)
	scriptCmd.Flags().BoolP("copy", "c", false, "copy the script to the clipboard instead of printing")
}

func runScript(cmd *cobra.Command, args []string) error {
	copyOut, _ := cmd.Flags().GetBool("copy")

	script, err := buildScript(utils.ExpandPath(args[0]))
	if err != nil {
		return err
	}

	if copyOut {
		if err := clipboard.WriteAll(script); err != nil {
			return fmt.Errorf("unable to copy to clipboard: %w", err)
		}
		fmt.Println("Copied script to clipboard.")
		return nil
	}

	fmt.Println(script)
	return nil
}

// buildScript renders the speakable text of the input: numbered pages
// for a story script, flattened prose for markdown.
func buildScript(path string) (string, error) {
	if utils.IsMarkdownFile(path) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("unable to read input: %w", err)
		}
		blocks, err := speech.FromMarkdown(utils.RemoveFrontmatter(raw))
		if err != nil {
			return "", fmt.Errorf("unable to parse markdown: %w", err)
		}
		if len(blocks) == 0 {
			return "", errors.New("no speakable text in markdown input")
		}
		return strings.Join(blocks, "\n\n"), nil
	}

	s, err := story.Load(path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, p := range s.Pages {
		if i > 0 {
			b.WriteString("\n")
		}
		writeNumbered(&b, i+1, speech.CleanForSpeech(p.Text))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// writeNumbered emits "n. text" with a hanging indent on wrapped lines.
func writeNumbered(b *strings.Builder, n int, text string) {
	prefix := fmt.Sprintf("%d. ", n)
	pad := strings.Repeat(" ", len(prefix))
	for i, line := range strings.Split(wordwrap.String(text, helpWidth-len(prefix)), "\n") {
		if i == 0 {
			b.WriteString(prefix)
		} else {
			b.WriteString(pad)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}
