package matcher

import (
	"strings"
	"unicode"
)

// stopwords carry no market identity. Trade verbs appear in feed descriptions
// ("X swapped 2 SOL for ..."), articles and prepositions in market titles.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "at": {}, "to": {},
	"for": {}, "by": {}, "and": {}, "or": {}, "is": {}, "be": {}, "will": {}, "with": {},
	"from": {}, "this": {}, "that": {}, "it": {}, "as": {},
	"buy": {}, "bought": {}, "sell": {}, "sold": {}, "swap": {}, "swapped": {},
	"yes": {}, "no": {}, "shares": {}, "share": {}, "market": {},
}

// Normalize lowercases s, replaces punctuation with spaces and collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens returns the distinct non-stopword tokens of s in first-seen order.
func Tokens(s string) []string {
	fields := strings.Fields(Normalize(s))
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// containsPhrase reports whether phrase occurs in text on token boundaries.
// Both arguments must already be normalized.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}
