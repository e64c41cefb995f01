package workflow

import (
	"encoding/json"
	"strings"
)

// categoryPayload is the shape the category-generation prompt asks the
// model to emit for each topical cluster.
type categoryPayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
	SourcePages []string `json:"sourcePages"`
}

// promptPayload is one candidate question from the prompt-generation
// call. The model sometimes emits bare strings instead of objects, so
// both are accepted.
type promptPayload struct {
	Question string `json:"question"`
	Intent   string `json:"intent"`
}

func (p *promptPayload) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Question = s
		return nil
	}
	type alias promptPayload
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = promptPayload(a)
	return nil
}

// parseCategoryOutput validates LLM output into category payloads. It
// accepts either a bare JSON array or an object wrapping one under
// "categories". Anything else is a SchemaError.
func parseCategoryOutput(raw string) ([]categoryPayload, error) {
	data := []byte(extractJSON(raw))

	var list []categoryPayload
	if err := json.Unmarshal(data, &list); err != nil {
		var wrapper struct {
			Categories json.RawMessage `json:"categories"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil || wrapper.Categories == nil {
			return nil, &SchemaError{Expected: "array of categories", Detail: firstChars(raw, 200)}
		}
		if err := json.Unmarshal(wrapper.Categories, &list); err != nil {
			return nil, &SchemaError{Expected: "array of categories", Detail: err.Error()}
		}
	}

	out := list[:0]
	for _, c := range list {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		if c.Confidence <= 0 || c.Confidence > 1 {
			c.Confidence = 0.5
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, &SchemaError{Expected: "at least one named category", Detail: firstChars(raw, 200)}
	}
	return out, nil
}

// parsePromptOutput validates LLM output into question payloads,
// accepted as a bare array or wrapped under "questions" or "prompts".
func parsePromptOutput(raw string) ([]promptPayload, error) {
	data := []byte(extractJSON(raw))

	var list []promptPayload
	if err := json.Unmarshal(data, &list); err != nil {
		var wrapper struct {
			Questions json.RawMessage `json:"questions"`
			Prompts   json.RawMessage `json:"prompts"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, &SchemaError{Expected: "array of questions", Detail: firstChars(raw, 200)}
		}
		payload := wrapper.Questions
		if payload == nil {
			payload = wrapper.Prompts
		}
		if payload == nil {
			return nil, &SchemaError{Expected: "array of questions", Detail: firstChars(raw, 200)}
		}
		if err := json.Unmarshal(payload, &list); err != nil {
			return nil, &SchemaError{Expected: "array of questions", Detail: err.Error()}
		}
	}

	out := list[:0]
	for _, p := range list {
		p.Question = strings.TrimSpace(p.Question)
		if p.Question == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, &SchemaError{Expected: "at least one question", Detail: firstChars(raw, 200)}
	}
	return out, nil
}

// extractJSON strips markdown code fences the model sometimes wraps
// its JSON in.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

func firstChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
