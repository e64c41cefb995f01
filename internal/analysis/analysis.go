package analysis

import "strings"

const (
	// DefaultFuzzyThreshold gates near-variant brand matches.
	DefaultFuzzyThreshold = 0.7

	contextWindow = 80
)

// Citation is one web source attached to an LLM answer.
type Citation struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// MentionContext is the text surrounding one counted brand mention.
type MentionContext struct {
	Text  string `json:"text"`
	Match string `json:"match"`
	Exact bool   `json:"exact"`
}

// CompetitorMention aggregates all detected mentions of one competitor.
type CompetitorMention struct {
	Name         string   `json:"name"`
	Mentions     int      `json:"mentions"`
	Contexts     []string `json:"contexts"`
	CitationURLs []string `json:"citationUrls"`
}

// Sentiment classifies the overall tone of an answer.
type Sentiment struct {
	Tone       string  `json:"tone"`
	Confidence float64 `json:"confidence"`
}

// Input carries everything Analyze needs; it never touches storage.
type Input struct {
	BrandName      string
	FuzzyThreshold float64
	Prompt         string
	ResponseText   string
	Citations      []Citation
}

// Result holds the derived brand-visibility metrics for one answer.
type Result struct {
	ExactMentions   int                 `json:"exactMentions"`
	FuzzyMentions   int                 `json:"fuzzyMentions"`
	MentionContexts []MentionContext    `json:"mentionContexts"`
	CitationCount   int                 `json:"citationCount"`
	BrandCitations  int                 `json:"brandCitations"`
	CitationURLs    []string            `json:"citationUrls"`
	Competitors     []CompetitorMention `json:"competitors"`
	Sentiment       Sentiment           `json:"sentiment"`
}

// Analyze scores one LLM answer for brand visibility. It is a pure
// function: same input, same output, no side effects.
func Analyze(input Input) Result {
	threshold := input.FuzzyThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}

	out := Result{}

	exactSpans := findExactMentions(input.ResponseText, input.BrandName)
	out.ExactMentions = len(exactSpans)
	for _, span := range exactSpans {
		out.MentionContexts = append(out.MentionContexts, MentionContext{
			Text:  contextAround(input.ResponseText, span.start, span.end),
			Match: input.ResponseText[span.start:span.end],
			Exact: true,
		})
	}

	fuzzy := findFuzzyMentions(input.ResponseText, input.BrandName, threshold, exactSpans)
	out.FuzzyMentions = len(fuzzy)
	for _, span := range fuzzy {
		out.MentionContexts = append(out.MentionContexts, MentionContext{
			Text:  contextAround(input.ResponseText, span.start, span.end),
			Match: input.ResponseText[span.start:span.end],
			Exact: false,
		})
	}

	out.CitationCount = len(input.Citations)
	brandLower := strings.ToLower(strings.TrimSpace(input.BrandName))
	for _, cite := range input.Citations {
		out.CitationURLs = append(out.CitationURLs, cite.URL)
		if brandLower == "" {
			continue
		}
		haystack := strings.ToLower(cite.Title + " " + cite.Snippet)
		if strings.Contains(haystack, brandLower) {
			out.BrandCitations++
		}
	}

	out.Competitors = detectCompetitors(input.ResponseText, input.BrandName, input.Citations)
	out.Sentiment = classifySentiment(input.ResponseText)

	return out
}

type span struct {
	start int
	end   int
}

// findExactMentions returns the byte spans of case-insensitive literal
// occurrences of brand in text, non-overlapping, left to right.
func findExactMentions(text, brand string) []span {
	brand = strings.TrimSpace(brand)
	if brand == "" || text == "" {
		return nil
	}
	lowerText := strings.ToLower(text)
	lowerBrand := strings.ToLower(brand)

	var spans []span
	offset := 0
	for {
		idx := strings.Index(lowerText[offset:], lowerBrand)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := start + len(lowerBrand)
		spans = append(spans, span{start: start, end: end})
		offset = end
	}
	return spans
}

func (s span) overlaps(other span) bool {
	return s.start < other.end && other.start < s.end
}

func overlapsAny(s span, spans []span) bool {
	for _, other := range spans {
		if s.overlaps(other) {
			return true
		}
	}
	return false
}

// contextAround returns a window of up to contextWindow runes on each
// side of [start,end), trimmed to rune boundaries.
func contextAround(text string, start, end int) string {
	left := start
	for steps := 0; left > 0 && steps < contextWindow; steps++ {
		left--
		for left > 0 && !isRuneStart(text[left]) {
			left--
		}
	}
	right := end
	for steps := 0; right < len(text) && steps < contextWindow; steps++ {
		right++
		for right < len(text) && !isRuneStart(text[right]) {
			right++
		}
	}
	return strings.TrimSpace(text[left:right])
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
