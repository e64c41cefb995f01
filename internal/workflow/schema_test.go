package workflow

import (
	"errors"
	"testing"
)

func TestParseCategoryOutputAcceptsArray(t *testing.T) {
	raw := `[{"name":"Widgets","description":"Widget tools","confidence":0.9,"sourcePages":["https://a.example"]}]`
	got, err := parseCategoryOutput(raw)
	if err != nil {
		t.Fatalf("parseCategoryOutput: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Widgets" || got[0].Confidence != 0.9 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestParseCategoryOutputAcceptsWrapperAndFences(t *testing.T) {
	raw := "```json\n{\"categories\":[{\"name\":\"Tools\"}]}\n```"
	got, err := parseCategoryOutput(raw)
	if err != nil {
		t.Fatalf("parseCategoryOutput: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Tools" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	// missing confidence gets the default
	if got[0].Confidence != 0.5 {
		t.Fatalf("confidence = %v, want 0.5", got[0].Confidence)
	}
}

func TestParseCategoryOutputRejectsNonArray(t *testing.T) {
	for _, raw := range []string{
		`"just a string"`,
		`{"something":"else"}`,
		`not json at all`,
		`[]`,
		`[{"description":"nameless"}]`,
	} {
		_, err := parseCategoryOutput(raw)
		var se *SchemaError
		if !errors.As(err, &se) {
			t.Fatalf("input %q: expected SchemaError, got %v", raw, err)
		}
	}
}

func TestParsePromptOutputAcceptsObjectsAndStrings(t *testing.T) {
	got, err := parsePromptOutput(`[{"question":"What is the best widget?","intent":"commercial"},"How do widgets work?"]`)
	if err != nil {
		t.Fatalf("parsePromptOutput: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if got[0].Intent != "commercial" {
		t.Fatalf("intent = %q", got[0].Intent)
	}
	if got[1].Question != "How do widgets work?" {
		t.Fatalf("question = %q", got[1].Question)
	}
}

func TestParsePromptOutputAcceptsWrappers(t *testing.T) {
	for _, raw := range []string{
		`{"questions":["Q1","Q2"]}`,
		`{"prompts":[{"question":"Q1"},{"question":"Q2"}]}`,
	} {
		got, err := parsePromptOutput(raw)
		if err != nil {
			t.Fatalf("input %q: %v", raw, err)
		}
		if len(got) != 2 {
			t.Fatalf("input %q: expected 2 questions, got %d", raw, len(got))
		}
	}
}

func TestParsePromptOutputRejectsEmpty(t *testing.T) {
	_, err := parsePromptOutput(`{"questions":[]}`)
	if !IsSchemaError(err) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}
