package engine

import (
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLanguage folds a BCP 47 tag down to the bare code the
// engines expect: "EN-us" and "en_US" both become "en". Strings that
// do not parse are lowercased and passed through so the engine's own
// language gate produces the error.
func NormalizeLanguage(s string) string {
	if s == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return strings.ToLower(s)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return strings.ToLower(s)
	}
	return base.String()
}
