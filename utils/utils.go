// Package utils provides small path and markdown helpers shared by the
// CLI commands.
package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var frontmatterFence = regexp.MustCompile(`(?m)^---\s*\r?\n`)

// RemoveFrontmatter strips a leading YAML frontmatter block so it is
// never read aloud.
func RemoveFrontmatter(content []byte) []byte {
	m := frontmatterFence.FindAllIndex(content, 2)
	if len(m) < 2 || m[0][0] != 0 {
		return content
	}
	return content[m[1][1]:]
}

// ExpandPath expands the tilde and all environment variables in the
// given path.
func ExpandPath(path string) string {
	s, err := homedir.Expand(path)
	if err == nil {
		return os.ExpandEnv(s)
	}
	return os.ExpandEnv(path)
}

// IsMarkdownFile reports whether the filename carries a markdown
// extension.
func IsMarkdownFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".mdown", ".mkdn", ".mkd", ".markdown":
		return true
	default:
		return false
	}
}

// GlamourStyle resolves a style name or JSON path to a renderer option.
func GlamourStyle(style string) glamour.TermRendererOption {
	if style == styles.AutoStyle {
		return glamour.WithAutoStyle()
	}
	if styles.DefaultStyles[style] != nil {
		return glamour.WithStandardStyle(style)
	}
	return glamour.WithStylePath(ExpandPath(style))
}

// Normalize folds accented characters to their base form so fuzzy
// filtering matches "Déjà" against "deja".
func Normalize(in string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, in)
	return out, err
}
