package analysis

import "strings"

// Sentiment is lexicon-based: count positive and negative terms, score
// by their balance. Deterministic for the same input text.

const (
	ToneKeyPositive = "positive"
	ToneKeyNeutral  = "neutral"
	ToneKeyNegative = "negative"
)

var positiveTerms = map[string]struct{}{
	"best": {}, "excellent": {}, "great": {}, "good": {}, "leading": {},
	"innovative": {}, "reliable": {}, "trusted": {}, "popular": {},
	"recommended": {}, "outstanding": {}, "strong": {}, "impressive": {},
	"robust": {}, "efficient": {}, "powerful": {}, "top": {},
	"favorite": {}, "well-known": {}, "renowned": {}, "superior": {},
	"seamless": {}, "intuitive": {}, "affordable": {}, "valuable": {},
	"love": {}, "loved": {}, "praised": {}, "award-winning": {},
}

var negativeTerms = map[string]struct{}{
	"worst": {}, "poor": {}, "bad": {}, "unreliable": {}, "slow": {},
	"expensive": {}, "overpriced": {}, "limited": {}, "lacking": {},
	"weak": {}, "disappointing": {}, "outdated": {}, "clunky": {},
	"confusing": {}, "difficult": {}, "buggy": {}, "broken": {},
	"complaints": {}, "criticized": {}, "avoid": {}, "fails": {},
	"failed": {}, "failure": {}, "problem": {}, "problems": {},
	"issues": {}, "frustrating": {}, "hate": {}, "hated": {},
}

func classifySentiment(text string) Sentiment {
	if strings.TrimSpace(text) == "" {
		return Sentiment{Tone: ToneKeyNeutral, Confidence: 0.5}
	}

	positive := 0
	negative := 0
	for _, tok := range tokenize(text) {
		word := strings.ToLower(text[tok.start:tok.end])
		if _, ok := positiveTerms[word]; ok {
			positive++
		}
		if _, ok := negativeTerms[word]; ok {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return Sentiment{Tone: ToneKeyNeutral, Confidence: 0.5}
	}

	balance := float64(positive-negative) / float64(total)
	confidence := 0.5 + absFloat(balance)/2

	switch {
	case balance > 0.2:
		return Sentiment{Tone: ToneKeyPositive, Confidence: confidence}
	case balance < -0.2:
		return Sentiment{Tone: ToneKeyNegative, Confidence: confidence}
	default:
		return Sentiment{Tone: ToneKeyNeutral, Confidence: confidence}
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
