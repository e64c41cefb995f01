package workflow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"brandscope-backend/internal/shared/storage/object"
	"brandscope-backend/internal/shared/telemetry"
	"brandscope-backend/internal/shared/util"
)

const maxPageBytes = 2 << 20

// Fetcher downloads pages and reduces them to plain text for the LLM.
// One URL failing never aborts the batch.
type Fetcher struct {
	Client *http.Client
	Store  object.ObjectStore
	// Budget is the maximum number of characters kept per page.
	Budget int
}

func NewFetcher(timeout time.Duration, store object.ObjectStore, budget int) *Fetcher {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	if budget <= 0 {
		budget = 2000
	}
	return &Fetcher{
		Client: &http.Client{Timeout: timeout},
		Store:  store,
		Budget: budget,
	}
}

// FetchPage downloads one URL and returns its cleaned, truncated text.
// When a Store is configured, the raw HTML is snapshotted first and the
// snapshot key returned alongside.
func (f *Fetcher) FetchPage(ctx context.Context, runID, pageURL string) (text, snapshotKey string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", "brandscope-bot/1.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", "", err
	}

	if f.Store != nil {
		key := fmt.Sprintf("runs/%s/pages/%s.html", runID, util.HashKey(pageURL))
		if _, err := f.Store.Save(ctx, key, "text/html", strings.NewReader(string(raw))); err != nil {
			// snapshot is best-effort; the cleaned text is what
			// downstream steps consume
			telemetry.Warn("workflow.fetch.snapshot_failed", map[string]any{
				"run_id": runID,
				"url":    pageURL,
				"error":  err.Error(),
			})
		} else {
			snapshotKey = key
		}
	}

	cleaned, err := CleanHTML(string(raw))
	if err != nil {
		return "", snapshotKey, err
	}
	return Truncate(cleaned, f.Budget), snapshotKey, nil
}

// CleanHTML strips script/style/nav chrome and collapses the remaining
// text to single-spaced plain text.
func CleanHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, iframe, svg").Remove()
	return CollapseWhitespace(doc.Text()), nil
}

// CollapseWhitespace folds runs of whitespace into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most budget runes without splitting a rune.
func Truncate(s string, budget int) string {
	if budget <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	return string(runes[:budget])
}
