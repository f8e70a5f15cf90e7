package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
)

const helpWidth = 78

var keywordStyle = lipgloss.NewStyle().Foreground(keywordColor())

func keywordColor() lipgloss.Color {
	if termenv.HasDarkBackground() {
		return lipgloss.Color("#ECFD65")
	}
	return lipgloss.Color("#04B575")
}

// paragraph wraps and indents help and guidance text.
func paragraph(s string) string {
	return strings.TrimRight(indent.String(wordwrap.String(s, helpWidth-2), 2), "\n")
}

func keyword(s string) string {
	return keywordStyle.Render(s)
}
