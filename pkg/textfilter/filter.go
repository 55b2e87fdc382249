// Package textfilter softens narrator language for family-rated worlds.
package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultReplacements maps common swear words to milder alternatives.
var DefaultReplacements = map[string]string{
	"asshole":  "jerk",
	"bastard":  "scoundrel",
	"bullshit": "nonsense",
	"crap":     "crud",
	"damn":     "darn",
	"dammit":   "drat",
	"fuck":     "fudge",
	"fucking":  "flipping",
	"goddamn":  "gosh-darn",
	"hell":     "heck",
	"piss":     "pee",
	"pissed":   "peeved",
	"shit":     "shoot",
	"shitty":   "lousy",
}

// Filter replaces listed words, matched whole-word and case-insensitively,
// keeping the original casing pattern.
type Filter struct {
	pattern      *regexp.Regexp
	replacements map[string]string
}

// NewFilter builds a filter from a word -> replacement map. Keys are
// matched case-insensitively.
func NewFilter(replacements map[string]string) *Filter {
	words := make([]string, 0, len(replacements))
	lower := make(map[string]string, len(replacements))
	for word, repl := range replacements {
		w := strings.ToLower(word)
		words = append(words, regexp.QuoteMeta(w))
		lower[w] = repl
	}
	// Longest first so "fucking" wins over "fuck".
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})

	f := &Filter{replacements: lower}
	if len(words) > 0 {
		f.pattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
	}
	return f
}

// NewProfanityFilter returns a filter using DefaultReplacements.
func NewProfanityFilter() *Filter {
	return NewFilter(DefaultReplacements)
}

// Clean returns text with every listed word replaced.
func (f *Filter) Clean(text string) string {
	if f.pattern == nil {
		return text
	}
	return f.pattern.ReplaceAllStringFunc(text, func(match string) string {
		repl, ok := f.replacements[strings.ToLower(match)]
		if !ok {
			return match
		}
		return preserveCase(match, repl)
	})
}

// Contains reports whether text has any listed word.
func (f *Filter) Contains(text string) bool {
	return f.pattern != nil && f.pattern.MatchString(text)
}

// ShouldFilterContent reports whether a world rating calls for filtering.
func ShouldFilterContent(rating string) bool {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "G", "PG", "PG13", "PG-13":
		return true
	default:
		return false
	}
}

func preserveCase(original, replacement string) string {
	if original == "" {
		return replacement
	}
	if strings.ToUpper(original) == original {
		return strings.ToUpper(replacement)
	}
	if strings.ToLower(original) == original {
		return strings.ToLower(replacement)
	}
	title := cases.Title(language.English)
	if title.String(strings.ToLower(original)) == original {
		return title.String(replacement)
	}

	orig := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}
