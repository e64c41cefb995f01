package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"brandscope-backend/internal/llm"
)

const apiURL = "https://api.openai.com/v1/chat/completions"

// Client implements llm.Client using OpenAI Chat Completions. Web-search
// requests are routed to the search-preview model variant, whose answers
// carry URL citation annotations.
type Client struct {
	apiKey      string
	model       string
	searchModel string
	httpClient  *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model, searchModel string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(searchModel) == "" {
		searchModel = model
	}
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:      apiKey,
		model:       model,
		searchModel: searchModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string          `json:"model"`
	Messages         []chatMessage   `json:"messages"`
	Temperature      *float32        `json:"temperature,omitempty"`
	ResponseFormat   *responseFormat `json:"response_format,omitempty"`
	WebSearchOptions *struct{}       `json:"web_search_options,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type urlCitation struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

type chatAnnotation struct {
	Type        string       `json:"type"`
	URLCitation *urlCitation `json:"url_citation,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role        string           `json:"role"`
			Content     string           `json:"content"`
			Annotations []chatAnnotation `json:"annotations,omitempty"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one completion request and returns the answer text plus
// any URL citations the search model attached.
func (c *Client) Complete(ctx context.Context, input llm.CompleteInput) (llm.Completion, error) {
	model := c.model
	if input.WebSearch {
		model = c.searchModel
	}

	messages := make([]chatMessage, 0, 3)
	if extra, ok := llm.ExtraSystemMessageFromContext(ctx); ok && strings.TrimSpace(extra) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: extra})
	}
	if strings.TrimSpace(input.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: input.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: input.Prompt})

	reqBody := chatRequest{
		Model:    model,
		Messages: messages,
	}
	if input.JSONResponse {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if input.WebSearch {
		reqBody.WebSearchOptions = &struct{}{}
	} else {
		// Search-preview models reject an explicit temperature.
		temp := float32(0)
		reqBody.Temperature = &temp
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Completion{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return llm.Completion{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return llm.Completion{}, fmt.Errorf("openai request timeout: %w", err)
		}
		return llm.Completion{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Completion{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return llm.Completion{}, fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return llm.Completion{}, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return llm.Completion{}, fmt.Errorf("openai response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return llm.Completion{}, fmt.Errorf("openai response empty content")
	}

	logUsage(model, parsed)

	return llm.Completion{
		Text:      content,
		Citations: citationsFromAnnotations(content, parsed.Choices[0].Message.Annotations),
		Model:     parsed.Model,
	}, nil
}

func citationsFromAnnotations(content string, annotations []chatAnnotation) []llm.Citation {
	var out []llm.Citation
	seen := make(map[string]struct{})
	for _, a := range annotations {
		if a.Type != "url_citation" || a.URLCitation == nil {
			continue
		}
		cite := a.URLCitation
		if strings.TrimSpace(cite.URL) == "" {
			continue
		}
		if _, dup := seen[cite.URL]; dup {
			continue
		}
		seen[cite.URL] = struct{}{}
		out = append(out, llm.Citation{
			URL:     cite.URL,
			Title:   cite.Title,
			Snippet: snippetFromIndexes(content, cite.StartIndex, cite.EndIndex),
		})
	}
	return out
}

func snippetFromIndexes(content string, start, end int) string {
	if start < 0 || end <= start || end > len(content) {
		return ""
	}
	return strings.TrimSpace(content[start:end])
}

func logUsage(model string, parsed chatResponse) {
	if parsed.Usage == nil {
		log.Printf("llm response model=%s", model)
		return
	}
	log.Printf("llm response model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		model, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, parsed.Usage.TotalTokens)
}

var _ llm.Client = (*Client)(nil)
