package analysis

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Competitor detection is a heuristic over proper-noun-like token
// sequences: runs of capitalized words (length 1-3) that are not the
// brand, not stopwords, and not merely sentence-initial common words.
// The contract is a deduplicated list keyed by normalized name with
// count >= 1 and non-nil contexts.

var properNounStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "as": {}, "at": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "he": {}, "her": {}, "his": {}, "how": {},
	"i": {}, "if": {}, "in": {}, "it": {}, "its": {}, "my": {}, "no": {},
	"of": {}, "on": {}, "or": {}, "our": {}, "she": {}, "so": {},
	"that": {}, "the": {}, "their": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "those": {}, "to": {}, "we": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "while": {}, "who": {},
	"why": {}, "with": {}, "you": {}, "your": {},
	// Common sentence openers that are never company names on their own.
	"according": {}, "additionally": {}, "after": {}, "also": {},
	"although": {}, "another": {}, "because": {}, "before": {},
	"both": {}, "finally": {}, "first": {}, "here": {}, "however": {},
	"many": {}, "more": {}, "most": {}, "note": {}, "one": {},
	"overall": {}, "second": {}, "several": {}, "since": {}, "some": {},
	"third": {}, "unlike": {}, "yes": {},
}

func detectCompetitors(text, brand string, citations []Citation) []CompetitorMention {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	brandFolded := foldBrand(brand)

	type agg struct {
		display  string
		count    int
		contexts []string
	}
	found := make(map[string]*agg)
	var order []string

	record := func(seq span, establish bool) {
		name := text[seq.start:seq.end]
		normalized := strings.ToLower(name)
		if brandFolded != "" {
			folded := foldBrand(name)
			if folded == brandFolded || strings.Contains(folded, brandFolded) || strings.Contains(brandFolded, folded) {
				return
			}
		}
		entry, ok := found[normalized]
		if !ok {
			if !establish {
				return
			}
			entry = &agg{display: name, contexts: []string{}}
			found[normalized] = entry
			order = append(order, normalized)
		}
		entry.count++
		entry.contexts = append(entry.contexts, contextAround(text, seq.start, seq.end))
	}

	strong, weak := properNounSequences(text)
	for _, seq := range strong {
		record(seq, true)
	}
	// Sentence-initial lone words only count once the same name has been
	// established mid-sentence.
	for _, seq := range weak {
		record(seq, false)
	}

	var out []CompetitorMention
	for _, key := range order {
		entry := found[key]
		out = append(out, CompetitorMention{
			Name:         entry.display,
			Mentions:     entry.count,
			Contexts:     entry.contexts,
			CitationURLs: citationURLsMentioning(citations, key),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mentions > out[j].Mentions })
	return out
}

func citationURLsMentioning(citations []Citation, nameLower string) []string {
	var urls []string
	for _, cite := range citations {
		haystack := strings.ToLower(cite.URL + " " + cite.Title + " " + cite.Snippet)
		if strings.Contains(haystack, nameLower) {
			urls = append(urls, cite.URL)
		}
	}
	return urls
}

// properNounSequences finds runs of up to three capitalized words. A
// lone capitalized word is strong when it sits mid-sentence or is
// distinctive on its own (mixed case or digits); sentence-initial lone
// words are returned separately as weak candidates.
func properNounSequences(text string) (strong, weak []span) {
	tokens := tokenize(text)

	i := 0
	for i < len(tokens) {
		if !isCapitalizedWord(text, tokens[i]) || isStopword(text, tokens[i]) {
			i++
			continue
		}
		j := i
		for j+1 < len(tokens) && j-i < 2 &&
			adjacentTokens(text, tokens[j], tokens[j+1]) &&
			isCapitalizedWord(text, tokens[j+1]) &&
			!isStopword(text, tokens[j+1]) {
			j++
		}
		seq := span{start: tokens[i].start, end: tokens[j].end}
		switch {
		case j > i || keepSingle(text, tokens[i]):
			strong = append(strong, seq)
		default:
			weak = append(weak, seq)
		}
		i = j + 1
	}
	return strong, weak
}

func isCapitalizedWord(text string, tok token) bool {
	r, _ := utf8.DecodeRuneInString(text[tok.start:tok.end])
	return unicode.IsUpper(r)
}

func isStopword(text string, tok token) bool {
	word := strings.ToLower(text[tok.start:tok.end])
	_, ok := properNounStopwords[word]
	return ok
}

// adjacentTokens reports whether only spaces separate the two tokens, so
// "Acme Industries" joins but "Acme. Industries" does not.
func adjacentTokens(text string, a, b token) bool {
	between := text[a.end:b.start]
	if len(between) == 0 || len(between) > 2 {
		return false
	}
	for _, r := range between {
		if r != ' ' && r != ' ' {
			return false
		}
	}
	return true
}

// keepSingle decides whether a lone capitalized word is proper-noun-like
// enough: mid-sentence position, or internal capitals/digits.
func keepSingle(text string, tok token) bool {
	word := text[tok.start:tok.end]
	if len(word) < 2 {
		return false
	}
	for _, r := range word[1:] {
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return !atSentenceStart(text, tok.start)
}

func atSentenceStart(text string, pos int) bool {
	for i := pos - 1; i >= 0; i-- {
		r := rune(text[i])
		switch {
		case r == ' ' || r == '\n' || r == '\r' || r == '\t' || r == '"' || r == '\'' || r == '(' || r == '*' || r == '-':
			continue
		case r == '.' || r == '!' || r == '?' || r == ':' || r == ';':
			return true
		default:
			return false
		}
	}
	return true
}
