package speech

import (
	"regexp"
	"strings"
)

// boundaryPattern matches a run of sentence-ending punctuation plus any
// closing quotes or brackets, followed by whitespace or end of text.
var boundaryPattern = regexp.MustCompile(`[.!?]+["')\]]*(\s+|$)`)

// abbreviations whose trailing period does not end a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "st": true, "vs": true, "etc": true,
	"inc": true, "ltd": true, "co": true, "corp": true, "dept": true,
	"approx": true, "est": true, "fig": true, "no": true, "vol": true,
	"e.g": true, "i.e": true, "u.s": true, "u.k": true, "ph.d": true,
	"a.m": true, "p.m": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "sept": true, "oct": true,
	"nov": true, "dec": true,
	"mon": true, "tue": true, "wed": true, "thu": true, "fri": true,
	"sat": true, "sun": true,
}

// Sentences splits text on sentence boundaries. Periods after known
// abbreviations and single-letter initials are not boundaries.
func Sentences(text string) []string {
	text = collapseSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	start := 0
	for _, loc := range boundaryPattern.FindAllStringIndex(text, -1) {
		punct := strings.TrimSpace(text[loc[0]:loc[1]])
		if punct != "" && punct[0] == '.' && !strings.ContainsAny(punct, "!?") {
			if isAbbreviation(lastWord(text[start:loc[0]])) {
				continue
			}
		}
		if s := strings.TrimSpace(text[start:loc[1]]); s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimLeft(fields[len(fields)-1], `("'`)
}

func isAbbreviation(word string) bool {
	w := strings.ToLower(word)
	if w == "" {
		return false
	}
	// Single-letter initials, as in "J. Smith".
	if len([]rune(w)) == 1 && w[0] >= 'a' && w[0] <= 'z' {
		return true
	}
	return abbreviations[w]
}

// SplitChunks packs sentences into chunks of at most max bytes without
// breaking sentence boundaries. A single sentence longer than max is
// split on word boundaries; a single word longer than max is cut hard.
// max <= 0 means no limit.
func SplitChunks(text string, max int) []string {
	text = collapseSpace(text)
	if text == "" {
		return nil
	}
	if max <= 0 || len(text) <= max {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}

	for _, s := range Sentences(text) {
		if len(s) > max {
			flush()
			chunks = append(chunks, splitWords(s, max)...)
			continue
		}
		if cur.Len() > 0 && cur.Len()+1+len(s) > max {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(s)
	}
	flush()
	return chunks
}

func splitWords(s string, max int) []string {
	var (
		chunks []string
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}

	for _, word := range strings.Fields(s) {
		for len(word) > max {
			flush()
			cut := max
			for cut > 0 && !isRuneStart(word[cut]) {
				cut--
			}
			if cut == 0 {
				cut = max
			}
			chunks = append(chunks, word[:cut])
			word = word[cut:]
		}
		if cur.Len() > 0 && cur.Len()+1+len(word) > max {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	flush()
	return chunks
}

// isRuneStart reports whether b can begin a UTF-8 sequence, so hard
// cuts never land inside a multi-byte rune.
func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
