// Package speech turns written text into something an engine can read
// aloud: markdown flattening, cleanup of symbols engines stumble over,
// and sentence-boundary chunking for engines with input limits.
package speech

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// FromMarkdown flattens a markdown document into speakable blocks, one
// per block element in document order. Inline markup collapses to its
// text, inline code is read literally, and fenced code blocks, raw
// HTML, and images are dropped. Headings and list items get terminal
// punctuation so they read as sentences.
func FromMarkdown(source []byte) ([]string, error) {
	doc := markdown.Parser().Parse(text.NewReader(source))

	var blocks []string
	push := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			blocks = append(blocks, terminate(s))
		}
	}

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.ListItem, *ast.Blockquote:
			push(nodeText(n, source))
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.ThematicBreak:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk markdown: %w", err)
	}
	return blocks, nil
}

// Flatten joins speakable blocks into one narration text.
func Flatten(blocks []string) string {
	return strings.Join(blocks, " ")
}

func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	collectText(n, source, &b)
	return collapseSpace(b.String())
}

func collectText(n ast.Node, source []byte, b *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}

		case *ast.Image:
			// Alt text is a caption, not narration.

		case *ast.RawHTML:

		default:
			collectText(t, source, b)
		}
	}
}

// terminate appends a period when a block carries no terminal
// punctuation of its own, so headings don't merge into the sentence
// that follows them.
func terminate(s string) string {
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ';':
		return s
	}
	return s + "."
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
