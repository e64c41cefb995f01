package readiness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"brandscope-backend/internal/llm"
	"brandscope-backend/internal/shared/metrics"
	"brandscope-backend/internal/shared/telemetry"
	"brandscope-backend/internal/workflow"
)

const (
	stepIDRobots    = "robots"
	stepIDSitemap   = "sitemap"
	stepIDHomepage  = "homepage"
	stepIDCrawl     = "crawl"
	stepIDAggregate = "aggregate"
	stepIDLLM       = "llm"

	maxReadinessBody = 2 << 20
	pageTextBudget   = 2000
)

// Service runs the AI-readiness job: a fixed six-step crawl and scoring
// pass that executes detached from the triggering request. Only the job
// itself mutates its run record; polls are pure reads.
type Service struct {
	Repo   Repo
	LLM    llm.Client
	Client *http.Client

	MaxPages   int
	LLMTimeout time.Duration

	limiter *pollLimiter
}

func NewService(repo Repo, llmClient llm.Client, pageTimeout, llmTimeout time.Duration, maxPages int) *Service {
	if pageTimeout <= 0 {
		pageTimeout = 12 * time.Second
	}
	if llmTimeout <= 0 {
		llmTimeout = 120 * time.Second
	}
	if maxPages <= 0 {
		maxPages = 50
	}
	return &Service{
		Repo:       repo,
		LLM:        llmClient,
		Client:     &http.Client{Timeout: pageTimeout},
		MaxPages:   maxPages,
		LLMTimeout: llmTimeout,
		limiter:    newPollLimiter(pollLimitWindow, nil),
	}
}

// Start creates a processing run and returns immediately; the job
// continues in a detached goroutine.
func (s *Service) Start(ctx context.Context, siteURL string) (Run, error) {
	siteURL = strings.TrimSpace(siteURL)
	if siteURL == "" {
		return Run{}, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	if !strings.Contains(siteURL, "://") {
		siteURL = "https://" + siteURL
	}
	parsed, err := url.Parse(siteURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Run{}, fmt.Errorf("%w: url is not a valid http(s) URL", ErrInvalidInput)
	}

	run := Run{
		ID:        uuid.NewString(),
		SiteURL:   parsed.String(),
		Status:    StatusProcessing,
		Message:   "analysis started",
		CreatedAt: time.Now().UTC(),
	}
	run.UpdatedAt = run.CreatedAt
	if err := s.Repo.CreateRun(ctx, run); err != nil {
		return Run{}, err
	}
	metrics.IncReadinessJobStarted()

	// detached from the request context on purpose: the job outlives
	// the request that triggered it
	go s.runJob(context.Background(), run)

	return run, nil
}

// Status returns the pollable view of a run. It never mutates state.
func (s *Service) Status(ctx context.Context, runID string) (StatusResponse, error) {
	run, err := s.Repo.GetRun(ctx, runID)
	if err != nil {
		return StatusResponse{}, err
	}
	logs, err := s.Repo.ListLogs(ctx, runID)
	if err != nil {
		return StatusResponse{}, err
	}
	if logs == nil {
		logs = []LogEntry{}
	}
	return StatusResponse{
		Status:          run.Status,
		Message:         run.Message,
		Logs:            logs,
		Recommendations: run.Recommendations,
		Error:           run.ErrorMessage,
	}, nil
}

// AllowPoll reports whether another status poll for this run is within
// the rate window.
func (s *Service) AllowPoll(runID string) (bool, int) {
	return s.limiter.Allow(runID), s.limiter.RetryAfterSeconds()
}

// runJob is the job's single error boundary: any panic or error inside
// the step sequence is caught here and written back as a terminal
// error status, never propagated.
func (s *Service) runJob(ctx context.Context, run Run) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("readiness.job.panic", map[string]any{
				"run_id": run.ID,
				"panic":  fmt.Sprint(r),
			})
			s.terminateWithError(ctx, run.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	recommendations, err := s.executeSteps(ctx, run)
	if err != nil {
		s.terminateWithError(ctx, run.ID, err.Error())
		return
	}

	if err := s.Repo.SetCompleted(ctx, run.ID, recommendations); err != nil {
		telemetry.Error("readiness.job.complete_write", map[string]any{"run_id": run.ID, "error": err.Error()})
		return
	}
	metrics.IncReadinessJobCompleted()
	metrics.ObserveReadinessDurationMs(float64(time.Since(started).Milliseconds()))
	telemetry.Info("readiness.job.done", map[string]any{
		"run_id":      run.ID,
		"duration_ms": time.Since(started).Milliseconds(),
	})
}

func (s *Service) terminateWithError(ctx context.Context, runID, message string) {
	metrics.IncReadinessJobFailed()
	if len(message) > 500 {
		message = message[:500]
	}
	if err := s.Repo.SetFailed(ctx, runID, message); err != nil {
		telemetry.Error("readiness.job.fail_write", map[string]any{"run_id": runID, "error": err.Error()})
	}
}

type crawlStats struct {
	robotsFound     bool
	foundSitemap    bool
	sitemapURLs     []string
	homepageTitle   string
	homepageText    string
	pagesAttempted  int
	pagesSucceeded  int
	responseTimesMs []float64
}

// executeSteps runs the fixed six-step sequence. Steps 1 and 2 degrade
// to warnings; a homepage failure or a final LLM failure is fatal.
func (s *Service) executeSteps(ctx context.Context, run Run) (string, error) {
	base, err := url.Parse(run.SiteURL)
	if err != nil {
		return "", fmt.Errorf("invalid site url: %w", err)
	}

	var stats crawlStats

	// step 1: robots.txt, not-found is a warning
	s.stepRobots(ctx, run.ID, base, &stats)
	_ = s.Repo.SetMessage(ctx, run.ID, "checked robots.txt")

	// step 2: sitemap, missing is a warning
	s.stepSitemap(ctx, run.ID, base, &stats)
	_ = s.Repo.SetMessage(ctx, run.ID, "located sitemap")

	// step 3: homepage scrape, fatal on failure
	if err := s.stepHomepage(ctx, run.ID, base, &stats); err != nil {
		return "", err
	}
	_ = s.Repo.SetMessage(ctx, run.ID, "scraped homepage")

	// step 4: bounded page crawl, per-page failures recorded
	s.stepCrawl(ctx, run.ID, base, &stats)
	_ = s.Repo.SetMessage(ctx, run.ID, "crawled pages")

	// step 5: aggregate statistics and build the consolidated report
	report := s.stepAggregate(ctx, run.ID, run.SiteURL, &stats)
	_ = s.Repo.SetMessage(ctx, run.ID, "computed site statistics")

	// step 6: one LLM call, fatal on timeout or error
	return s.stepLLM(ctx, run.ID, report)
}

func (s *Service) stepRobots(ctx context.Context, runID string, base *url.URL, stats *crawlStats) {
	robotsURL := base.ResolveReference(&url.URL{Path: "/robots.txt"}).String()
	body, ms, err := s.fetchTimed(ctx, robotsURL)
	if err != nil {
		s.appendLog(ctx, runID, stepIDRobots, "Fetch robots.txt", OutcomeWarn, nil, map[string]any{
			"url":   robotsURL,
			"error": err.Error(),
			"note":  "missing robots.txt is not fatal",
		})
		return
	}
	stats.robotsFound = true
	stats.responseTimesMs = append(stats.responseTimesMs, ms)
	s.appendLog(ctx, runID, stepIDRobots, "Fetch robots.txt", OutcomeOK, &ms, map[string]any{
		"url":   robotsURL,
		"bytes": len(body),
	})
}

func (s *Service) stepSitemap(ctx context.Context, runID string, base *url.URL, stats *crawlStats) {
	d := &workflow.Discoverer{Client: s.Client, MaxURLs: s.MaxPages}
	result, err := d.Discover(ctx, base.String())
	if err != nil || !result.FoundSitemap {
		detail := map[string]any{"note": "falling back to homepage-only crawl"}
		if err != nil {
			detail["error"] = err.Error()
		}
		s.appendLog(ctx, runID, stepIDSitemap, "Locate sitemap", OutcomeWarn, nil, detail)
		if err == nil {
			stats.sitemapURLs = result.URLs
		}
		return
	}
	stats.foundSitemap = true
	stats.sitemapURLs = result.URLs
	s.appendLog(ctx, runID, stepIDSitemap, "Locate sitemap", OutcomeOK, nil, map[string]any{
		"urlCount": len(result.URLs),
	})
}

func (s *Service) stepHomepage(ctx context.Context, runID string, base *url.URL, stats *crawlStats) error {
	body, ms, err := s.fetchTimed(ctx, base.String())
	if err != nil {
		s.appendLog(ctx, runID, stepIDHomepage, "Scrape homepage", OutcomeError, nil, map[string]any{
			"url":   base.String(),
			"error": err.Error(),
		})
		return fmt.Errorf("homepage scrape failed: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		s.appendLog(ctx, runID, stepIDHomepage, "Scrape homepage", OutcomeError, &ms, map[string]any{
			"url":   base.String(),
			"error": err.Error(),
		})
		return fmt.Errorf("homepage parse failed: %w", err)
	}

	stats.homepageTitle = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, iframe, svg").Remove()
	stats.homepageText = workflow.Truncate(workflow.CollapseWhitespace(doc.Text()), pageTextBudget)
	stats.responseTimesMs = append(stats.responseTimesMs, ms)
	stats.pagesAttempted++
	stats.pagesSucceeded++

	s.appendLog(ctx, runID, stepIDHomepage, "Scrape homepage", OutcomeOK, &ms, map[string]any{
		"url":       base.String(),
		"title":     stats.homepageTitle,
		"textChars": len(stats.homepageText),
	})
	return nil
}

func (s *Service) stepCrawl(ctx context.Context, runID string, base *url.URL, stats *crawlStats) {
	var attempted, succeeded, failed int
	for _, pageURL := range stats.sitemapURLs {
		if attempted >= s.MaxPages {
			break
		}
		if pageURL == base.String() {
			continue
		}
		attempted++
		_, ms, err := s.fetchTimed(ctx, pageURL)
		if err != nil {
			failed++
			continue
		}
		succeeded++
		stats.responseTimesMs = append(stats.responseTimesMs, ms)
	}
	stats.pagesAttempted += attempted
	stats.pagesSucceeded += succeeded

	outcome := OutcomeOK
	if attempted > 0 && succeeded == 0 {
		outcome = OutcomeWarn
	}
	s.appendLog(ctx, runID, stepIDCrawl, "Crawl sitemap pages", outcome, nil, map[string]any{
		"attempted": attempted,
		"succeeded": succeeded,
		"failed":    failed,
	})
}

func (s *Service) stepAggregate(ctx context.Context, runID, siteURL string, stats *crawlStats) string {
	var avg, min, max float64
	if n := len(stats.responseTimesMs); n > 0 {
		min = stats.responseTimesMs[0]
		max = stats.responseTimesMs[0]
		var sum float64
		for _, v := range stats.responseTimesMs {
			sum += v
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		avg = sum / float64(n)
	}

	s.appendLog(ctx, runID, stepIDAggregate, "Compute site statistics", OutcomeOK, nil, map[string]any{
		"pagesAttempted":    stats.pagesAttempted,
		"pagesSucceeded":    stats.pagesSucceeded,
		"avgResponseTimeMs": avg,
		"minResponseTimeMs": min,
		"maxResponseTimeMs": max,
		"robotsFound":       stats.robotsFound,
		"sitemapFound":      stats.foundSitemap,
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Site: %s\n", siteURL)
	fmt.Fprintf(&b, "robots.txt present: %t\n", stats.robotsFound)
	fmt.Fprintf(&b, "sitemap present: %t (%d URLs)\n", stats.foundSitemap, len(stats.sitemapURLs))
	fmt.Fprintf(&b, "Homepage title: %s\n", stats.homepageTitle)
	fmt.Fprintf(&b, "Pages fetched: %d of %d attempted\n", stats.pagesSucceeded, stats.pagesAttempted)
	fmt.Fprintf(&b, "Response times (ms): avg %.0f, min %.0f, max %.0f\n\n", avg, min, max)
	b.WriteString("Homepage content excerpt:\n")
	b.WriteString(stats.homepageText)
	return b.String()
}

func (s *Service) stepLLM(ctx context.Context, runID, report string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.LLMTimeout)
	defer cancel()

	completion, err := s.LLM.Complete(callCtx, llm.CompleteInput{
		System: "You are an expert in machine-readability and AI findability of websites. Given a crawl report, score the site and give concrete, prioritized recommendations.",
		Prompt: report,
	})
	if err != nil {
		s.appendLog(ctx, runID, stepIDLLM, "Generate recommendations", OutcomeError, nil, map[string]any{
			"error": err.Error(),
		})
		return "", fmt.Errorf("recommendation generation failed: %w", err)
	}

	s.appendLog(ctx, runID, stepIDLLM, "Generate recommendations", OutcomeOK, nil, map[string]any{
		"chars": len(completion.Text),
		"model": completion.Model,
	})
	return completion.Text, nil
}

// appendLog writes one audit entry; a failed write is logged but never
// interrupts the job.
func (s *Service) appendLog(ctx context.Context, runID, stepID, stepName, outcome string, responseTimeMs *float64, detail map[string]any) {
	entry := LogEntry{
		RunID:          runID,
		StepID:         stepID,
		StepName:       stepName,
		Outcome:        outcome,
		ResponseTimeMs: responseTimeMs,
		Detail:         detail,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.Repo.AppendLog(ctx, entry); err != nil {
		telemetry.Error("readiness.log_write", map[string]any{
			"run_id": runID,
			"step":   stepID,
			"error":  err.Error(),
		})
	}
}

func (s *Service) fetchTimed(ctx context.Context, rawURL string) ([]byte, float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", "brandscope-bot/1.0")

	started := time.Now()
	resp, err := s.Client.Do(req)
	ms := float64(time.Since(started).Milliseconds())
	if err != nil {
		return nil, ms, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, ms, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadinessBody))
	return body, ms, err
}
