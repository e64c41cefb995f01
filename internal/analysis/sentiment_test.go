package analysis

import "testing"

func TestSentimentClassification(t *testing.T) {
	cases := []struct {
		name string
		text string
		tone string
	}{
		{"positive", "Acme is an excellent, reliable and innovative vendor.", ToneKeyPositive},
		{"negative", "The product is slow, buggy and disappointing.", ToneKeyNegative},
		{"neutral no signal", "Acme is a company based in Springfield.", ToneKeyNeutral},
		{"mixed balances out", "It is reliable but also expensive and slow. Still a good tool.", ToneKeyNeutral},
		{"empty", "", ToneKeyNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifySentiment(tc.text)
			if got.Tone != tc.tone {
				t.Fatalf("Tone = %q, want %q", got.Tone, tc.tone)
			}
			if got.Confidence < 0 || got.Confidence > 1 {
				t.Fatalf("Confidence = %f out of range", got.Confidence)
			}
		})
	}
}

func TestSentimentDeterministic(t *testing.T) {
	text := "Great support, great pricing, occasionally slow."
	first := classifySentiment(text)
	second := classifySentiment(text)
	if first != second {
		t.Fatalf("sentiment not deterministic: %+v vs %+v", first, second)
	}
}
