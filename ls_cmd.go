package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/gitcha"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/Neperienx/TTS-local/utils"
)

// sourceGlobs match the inputs speak and story accept.
var sourceGlobs = []string{"*.md", "*.mdown", "*.mkdn", "*.mkd", "*.markdown", "*.json"}

var lsCmd = &cobra.Command{
	Use:   "ls [dir]",
	Short: "List narration sources under a directory",
	Long: paragraph(
		fmt.Sprintf("\nFind everything narratable under a directory: story scripts and markdown files. The walk is %s, so build artifacts stay out of the listing.", keyword("git-aware")),
	),
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().String("filter", "", "fuzzy-filter the listing")
	lsCmd.Flags().BoolP("all", "a", false, "include files ignored by git")
}

type sourceEntry struct {
	path  string
	kind  string
	pages int
	size  int64
	mod   time.Time
}

func runLs(cmd *cobra.Command, args []string) error {
	filter, _ := cmd.Flags().GetString("filter")
	all, _ := cmd.Flags().GetBool("all")

	dir := "."
	if len(args) == 1 {
		dir = utils.ExpandPath(args[0])
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("unable to resolve %s: %w", dir, err)
	}
	if st, err := os.Stat(abs); err != nil {
		return fmt.Errorf("unable to list %s: %w", dir, err)
	} else if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	var ch chan gitcha.SearchResult
	if all {
		ch, err = gitcha.FindAllFilesExcept(abs, sourceGlobs, nil)
	} else {
		ch, err = gitcha.FindFilesExcept(abs, sourceGlobs, nil)
	}
	if err != nil {
		return fmt.Errorf("unable to scan %s: %w", dir, err)
	}

	var entries []sourceEntry
	for res := range ch {
		rel, err := filepath.Rel(abs, res.Path)
		if err != nil {
			rel = res.Path
		}
		e := sourceEntry{path: rel, size: res.Info.Size(), mod: res.Info.ModTime()}
		if strings.EqualFold(filepath.Ext(res.Path), ".json") {
			pages, ok := sniffStory(res.Path)
			if !ok {
				continue
			}
			e.kind = "story"
			e.pages = pages
		} else {
			e.kind = "markdown"
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	if filter != "" {
		targets := make([]string, len(entries))
		for i, e := range entries {
			targets[i] = normalize(e.path)
		}
		matches := fuzzy.Find(normalize(filter), targets)
		filtered := make([]sourceEntry, 0, len(matches))
		for _, m := range matches {
			filtered = append(filtered, entries[m.Index])
		}
		entries = filtered
	}

	if len(entries) == 0 {
		fmt.Println("No narration sources found.")
		return nil
	}

	pathWidth := 0
	for _, e := range entries {
		if w := runewidth.StringWidth(e.path); w > pathWidth {
			pathWidth = w
		}
	}
	for _, e := range entries {
		detail := e.kind
		if e.kind == "story" {
			detail = fmt.Sprintf("story, %d pages", e.pages)
			if e.pages == 1 {
				detail = "story, 1 page"
			}
		}
		fmt.Printf("%s  %s\n",
			runewidth.FillRight(e.path, pathWidth),
			detailStyle.Render(fmt.Sprintf("%s, %s, %s",
				detail, humanize.Bytes(uint64(e.size)), humanize.Time(e.mod)))) //nolint:gosec
	}
	return nil
}

// sniffStory reports whether a JSON file looks like a story script,
// without running full validation.
func sniffStory(path string) (int, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	var s struct {
		Pages []json.RawMessage `json:"pages"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	return len(s.Pages), len(s.Pages) > 0
}
