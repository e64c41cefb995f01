package workflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"brandscope-backend/internal/shared/storage/object/local"
)

func TestCleanHTMLStripsScriptsAndCollapsesWhitespace(t *testing.T) {
	html := `<html><head><style>body { color: red }</style></head><body>
		<script>alert("hi")</script>
		<h1>Acme   Widgets</h1>
		<p>Reliable    tools
		for everyone.</p>
	</body></html>`

	got, err := CleanHTML(html)
	if err != nil {
		t.Fatalf("CleanHTML: %v", err)
	}
	if strings.Contains(got, "alert") || strings.Contains(got, "color") {
		t.Fatalf("script/style content leaked: %q", got)
	}
	want := "Acme Widgets Reliable tools for everyone."
	if got != want {
		t.Fatalf("CleanHTML = %q, want %q", got, want)
	}
}

func TestTruncateRespectsRuneBoundaries(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Fatalf("Truncate short = %q", got)
	}
	if got := Truncate("héllo wörld", 5); got != "héllo" {
		t.Fatalf("Truncate = %q, want %q", got, "héllo")
	}
}

func TestFetchPageSavesSnapshotAndCleansText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><script>x()</script><p>Page   body</p></body></html>`))
	}))
	t.Cleanup(srv.Close)

	store := local.New(t.TempDir())
	f := NewFetcher(5*time.Second, store, 2000)

	text, snapshotKey, err := f.FetchPage(context.Background(), "run-1", srv.URL+"/page")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if text != "Page body" {
		t.Fatalf("text = %q, want %q", text, "Page body")
	}
	if snapshotKey == "" {
		t.Fatal("expected snapshot key")
	}
	rc, err := store.Open(context.Background(), snapshotKey)
	if err != nil {
		t.Fatalf("Open snapshot: %v", err)
	}
	_ = rc.Close()
}

func TestFetchPageHonorsBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>" + strings.Repeat("word ", 1000) + "</body></html>"))
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(5*time.Second, nil, 100)
	text, _, err := f.FetchPage(context.Background(), "run-1", srv.URL)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len([]rune(text)) != 100 {
		t.Fatalf("expected 100 runes, got %d", len([]rune(text)))
	}
}

func TestFetchPageReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(5*time.Second, nil, 2000)
	if _, _, err := f.FetchPage(context.Background(), "run-1", srv.URL); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
