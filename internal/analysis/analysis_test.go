package analysis

import (
	"reflect"
	"strings"
	"testing"
)

func TestExactMentionCount(t *testing.T) {
	cases := []struct {
		name  string
		brand string
		text  string
		want  int
	}{
		{"none", "Acme", "No relevant companies here.", 0},
		{"single", "Acme", "Acme is a tool vendor.", 1},
		{"case insensitive", "Acme", "ACME and acme and AcMe.", 3},
		{"inside words count as literal occurrences", "Acme", "Acmeify uses Acme.", 2},
		{"empty brand", "", "Acme everywhere", 0},
		{"empty text", "Acme", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Analyze(Input{BrandName: tc.brand, ResponseText: tc.text})
			if got.ExactMentions != tc.want {
				t.Fatalf("ExactMentions = %d, want %d", got.ExactMentions, tc.want)
			}
		})
	}
}

func TestEmptyCitations(t *testing.T) {
	got := Analyze(Input{BrandName: "Acme", ResponseText: "Acme is fine."})
	if got.CitationCount != 0 {
		t.Fatalf("CitationCount = %d, want 0", got.CitationCount)
	}
	if got.BrandCitations != 0 {
		t.Fatalf("BrandCitations = %d, want 0", got.BrandCitations)
	}
	if len(got.CitationURLs) != 0 {
		t.Fatalf("CitationURLs = %v, want empty", got.CitationURLs)
	}
}

func TestBrandCitationsSubset(t *testing.T) {
	got := Analyze(Input{
		BrandName:    "Acme",
		ResponseText: "Acme appears twice here: Acme.",
		Citations: []Citation{
			{URL: "https://a.example/one", Title: "Acme product review"},
			{URL: "https://b.example/two", Title: "Unrelated listicle"},
			{URL: "https://c.example/three", Snippet: "comparison featuring acme tools"},
		},
	})
	if got.ExactMentions != 2 {
		t.Fatalf("ExactMentions = %d, want 2", got.ExactMentions)
	}
	if got.CitationCount != 3 {
		t.Fatalf("CitationCount = %d, want 3", got.CitationCount)
	}
	if got.BrandCitations != 2 {
		t.Fatalf("BrandCitations = %d, want 2", got.BrandCitations)
	}
}

// Scenario: response mentions the brand twice and cites one brand-titled page.
func TestExecuteScenario(t *testing.T) {
	got := Analyze(Input{
		BrandName:    "Acme",
		ResponseText: "Acme leads the market. Many teams pick Acme for reliability.",
		Citations: []Citation{
			{URL: "https://reviews.example/acme", Title: "Acme review"},
		},
	})
	if got.ExactMentions != 2 {
		t.Fatalf("ExactMentions = %d, want 2", got.ExactMentions)
	}
	if got.BrandCitations != 1 {
		t.Fatalf("BrandCitations = %d, want 1", got.BrandCitations)
	}
}

func TestMentionContextsBounded(t *testing.T) {
	long := strings.Repeat("x ", 200) + "Acme" + strings.Repeat(" y", 200)
	got := Analyze(Input{BrandName: "Acme", ResponseText: long})
	if len(got.MentionContexts) != 1 {
		t.Fatalf("contexts = %d, want 1", len(got.MentionContexts))
	}
	ctx := got.MentionContexts[0]
	if !strings.Contains(ctx.Text, "Acme") {
		t.Fatalf("context should contain the match: %q", ctx.Text)
	}
	if len(ctx.Text) > 2*contextWindow+len("Acme")+2 {
		t.Fatalf("context too long: %d bytes", len(ctx.Text))
	}
	if !ctx.Exact {
		t.Fatalf("expected exact mention context")
	}
}

func TestDeterministic(t *testing.T) {
	input := Input{
		BrandName:    "Acme",
		ResponseText: "Acme is great but Globex is criticized. Acmes tools are popular.",
		Citations:    []Citation{{URL: "https://x.example", Title: "Globex vs Acme"}},
	}
	first := Analyze(input)
	second := Analyze(input)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Analyze is not deterministic:\n%+v\n%+v", first, second)
	}
}
