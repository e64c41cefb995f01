package workflow

import (
	"fmt"
	"strings"

	"brandscope-backend/internal/runs"
)

const categoriesSystem = `You are a market research analyst. You derive topical categories from website content. Reply with only JSON.`

const promptsSystem = `You generate realistic questions that potential customers would ask an AI assistant. Reply with only JSON.`

func categoriesPrompt(run runs.Run, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following website content for the brand %q and identify its main topical categories.\n\n", run.BrandName)
	b.WriteString("Return a JSON array where each element has: name (string), description (string), confidence (number 0-1), sourcePages (array of URLs the category is based on).\n\n")
	if run.Language != "" {
		fmt.Fprintf(&b, "Write names and descriptions in language %q.\n\n", run.Language)
	}
	b.WriteString("Website content:\n")
	b.WriteString(content)
	return b.String()
}

func promptsPrompt(run runs.Run, category Category, questionsPerCategory int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d questions a potential customer would ask an AI assistant about the topic %q", questionsPerCategory, category.Name)
	if category.Description != "" {
		fmt.Fprintf(&b, " (%s)", category.Description)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "The questions are about the market the brand %q operates in; do not name the brand itself in the questions.\n", run.BrandName)
	if run.Language != "" {
		fmt.Fprintf(&b, "Write the questions in language %q.\n", run.Language)
	}
	if run.Country != "" {
		fmt.Fprintf(&b, "Assume the customer is located in %s.\n", run.Country)
	}
	b.WriteString("\nReturn a JSON array where each element has: question (string), intent (one of informational, commercial, transactional, navigational).")
	return b.String()
}

func executeSystem(run runs.Run) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant answering a consumer question. Use web search to ground your answer and cite your sources.")
	if run.Language != "" {
		fmt.Fprintf(&b, " Answer in language %q.", run.Language)
	}
	if run.Country != "" {
		fmt.Fprintf(&b, " The user is located in %s.", run.Country)
	}
	return b.String()
}
