package analysis

import (
	"strings"
	"unicode"
)

// Fuzzy brand matching uses normalized Levenshtein similarity:
// 1 - distance/maxLen over folded forms (lowercased, spaces and hyphens
// removed, trailing plural 's' stripped). The similarity function is
// deterministic; the threshold gates how far a variant may drift.

// findFuzzyMentions scans word tokens (and adjacent-token joins, for
// multi-word brands) for near-variants of brand that are not already
// inside an exact-match span.
func findFuzzyMentions(text, brand string, threshold float64, exactSpans []span) []span {
	folded := foldBrand(brand)
	if folded == "" || text == "" {
		return nil
	}

	tokens := tokenize(text)
	var out []span
	claimed := append([]span(nil), exactSpans...)

	consider := func(s span) {
		if overlapsAny(s, claimed) {
			return
		}
		candidate := foldBrand(text[s.start:s.end])
		if candidate == "" {
			return
		}
		if similarity(candidate, folded) >= threshold {
			out = append(out, s)
			claimed = append(claimed, s)
		}
	}

	// Joined adjacent tokens first so "acme corp" variants win over a
	// lone "acme" when the brand itself is multi-word.
	if strings.ContainsAny(strings.TrimSpace(brand), " -") {
		for i := 0; i+1 < len(tokens); i++ {
			consider(span{start: tokens[i].start, end: tokens[i+1].end})
		}
	}
	for _, tok := range tokens {
		consider(span{start: tok.start, end: tok.end})
	}
	return out
}

// foldBrand lowercases, strips spaces and hyphens, and folds a trailing
// plural 's' so "Acmes" and "acme" compare equal.
func foldBrand(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == ' ' || r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	folded := b.String()
	if len(folded) > 3 && strings.HasSuffix(folded, "s") {
		folded = folded[:len(folded)-1]
	}
	return folded
}

// similarity is normalized Levenshtein: 1 - dist/max(len(a), len(b)).
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	dist := levenshtein(ra, rb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1 - float64(dist)/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

type token struct {
	start int
	end   int
}

// tokenize returns byte spans of word tokens (letters, digits, internal
// hyphens and apostrophes).
func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start: start, end: len(text)})
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\''
}
