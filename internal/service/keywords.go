// Package service holds the pieces of the waitlist flow that sit between
// the handlers and the outside world
package service

import "strings"

const maxKeywords = 20

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "into": true, "your": true, "you": true,
	"are": true, "our": true, "their": true, "about": true, "over": true,
	"under": true, "but": true, "not": true, "more": true, "less": true,
	"than": true, "then": true, "like": true, "just": true, "have": true,
	"has": true, "will": true, "can": true, "could": true, "would": true,
	"should": true, "to": true, "of": true, "in": true, "on": true,
	"at": true, "by": true, "a": true, "an": true, "or": true, "as": true,
	"be": true, "is": true, "it": true,
}

// ExtractKeywords derives a capped keyword set from free text, merged
// with any explicitly supplied keywords. Deterministic: same inputs,
// same output, explicit entries first.
func ExtractKeywords(text string, explicit []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, maxKeywords)

	add := func(w string) {
		if w == "" || seen[w] || len(out) >= maxKeywords {
			return
		}
		seen[w] = true
		out = append(out, w)
	}

	for _, raw := range explicit {
		for _, w := range strings.Split(strings.ToLower(raw), ",") {
			add(strings.TrimSpace(w))
		}
	}

	for _, w := range tokenize(text) {
		if len(w) >= 3 && !stopwords[w] {
			add(w)
		}
	}

	return out
}

// tokenize lower-cases the text, drops everything that isn't
// alphanumeric and splits on whitespace and commas.
func tokenize(text string) []string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, text)

	return strings.Fields(clean)
}
