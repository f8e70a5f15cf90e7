package speech

import (
	"regexp"
	"strings"
)

var (
	ansiPattern  = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	symbolWords = strings.NewReplacer(
		"&", " and ",
		"%", " percent",
		"@", " at ",
	)

	// Markup leftovers and glyphs the engines read out character by
	// character instead of skipping.
	junkChars = strings.NewReplacer(
		"*", "", "_", "", "`", "", "~", "",
		"#", "", "|", " ", "<", " ", ">", " ",
		"[", " ", "]", " ", "{", " ", "}", " ",
	)
)

// CleanForSpeech normalizes raw text for synthesis. Bare URLs and email
// addresses become words, a handful of symbols are spelled out, stray
// markup glyphs are dropped, and whitespace collapses to single spaces.
func CleanForSpeech(text string) string {
	text = ansiPattern.ReplaceAllString(text, "")
	text = urlPattern.ReplaceAllString(text, "link")
	text = emailPattern.ReplaceAllString(text, "email address")
	text = symbolWords.Replace(text)
	text = junkChars.Replace(text)
	return collapseSpace(text)
}
