package resolve

import (
	"regexp"
	"strings"
)

// Normalisation patterns, applied in order. The article list is the closed
// set of Italian determiners; word-boundary anchoring keeps them from
// being stripped out of longer words ("lago" keeps its "la").
var (
	apostrophes = regexp.MustCompile(`[’']`)
	nonAlnum    = regexp.MustCompile(`[^\p{L}\p{N} ]`)
	articles    = regexp.MustCompile(`\b(il|lo|la|i|gli|le|un|uno|una|l)\b`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Normalize canonicalises free-form text for comparison: lowercase,
// punctuation and apostrophes stripped, standalone articles removed,
// whitespace collapsed. Spoken or typed variants of the same device name
// normalise to the same string.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(s)
	s = apostrophes.ReplaceAllString(s, " ")
	s = nonAlnum.ReplaceAllString(s, " ")
	s = articles.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens returns the set of comparison tokens of s: the space-split,
// deduplicated words of Normalize(s). Order is irrelevant; only
// membership matters.
func Tokens(s string) map[string]struct{} {
	fields := strings.Fields(Normalize(s))
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tokens[f] = struct{}{}
	}
	return tokens
}
