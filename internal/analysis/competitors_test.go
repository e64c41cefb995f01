package analysis

import "testing"

func TestCompetitorsExcludeBrand(t *testing.T) {
	got := Analyze(Input{
		BrandName:    "Acme",
		ResponseText: "Acme competes with Globex and Initech. Globex is larger.",
	})
	for _, comp := range got.Competitors {
		if comp.Name == "Acme" {
			t.Fatalf("brand must not appear as competitor")
		}
	}
	byName := competitorsByName(got.Competitors)
	if byName["globex"] != 2 {
		t.Fatalf("Globex mentions = %d, want 2", byName["globex"])
	}
	if byName["initech"] != 1 {
		t.Fatalf("Initech mentions = %d, want 1", byName["initech"])
	}
}

func TestCompetitorsDeduplicatedByNormalizedName(t *testing.T) {
	got := Analyze(Input{
		BrandName:    "Acme",
		ResponseText: "Compare Globex with GLOBEX alternatives; globex is cheaper.",
	})
	count := 0
	for _, comp := range got.Competitors {
		if foldBrand(comp.Name) == "globex" {
			count++
		}
	}
	if count > 1 {
		t.Fatalf("expected one deduplicated Globex entry, got %d", count)
	}
}

func TestCompetitorsHaveContextsAndCounts(t *testing.T) {
	got := Analyze(Input{
		BrandName:    "Acme",
		ResponseText: "Teams often evaluate Globex Systems before choosing.",
		Citations: []Citation{
			{URL: "https://rev.example/globex", Title: "Globex Systems review"},
			{URL: "https://rev.example/other", Title: "Something else"},
		},
	})
	if len(got.Competitors) == 0 {
		t.Fatalf("expected at least one competitor")
	}
	for _, comp := range got.Competitors {
		if comp.Mentions < 1 {
			t.Fatalf("competitor %q has count %d", comp.Name, comp.Mentions)
		}
		if comp.Contexts == nil {
			t.Fatalf("competitor %q has nil contexts", comp.Name)
		}
	}
	first := got.Competitors[0]
	if first.Name != "Globex Systems" {
		t.Fatalf("Name = %q, want %q", first.Name, "Globex Systems")
	}
	if len(first.CitationURLs) != 1 || first.CitationURLs[0] != "https://rev.example/globex" {
		t.Fatalf("CitationURLs = %v", first.CitationURLs)
	}
}

func TestSentenceInitialCommonWordSkipped(t *testing.T) {
	got := Analyze(Input{
		BrandName:    "Acme",
		ResponseText: "However, the market is broad. Additionally, pricing varies.",
	})
	if len(got.Competitors) != 0 {
		t.Fatalf("expected no competitors, got %+v", got.Competitors)
	}
}

func competitorsByName(comps []CompetitorMention) map[string]int {
	out := make(map[string]int, len(comps))
	for _, comp := range comps {
		out[foldBrand(comp.Name)] = comp.Mentions
	}
	return out
}
