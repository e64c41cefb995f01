package main

// Exercise the analysis pipeline end to end against a live site without
// the HTTP server or a database:
//   OPENAI_API_KEY=... go run ./cmd/pipelinetest -url https://example.com -brand "Example"

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	openai "brandscope-backend/internal/llm/openai"
	"brandscope-backend/internal/runs"
	"brandscope-backend/internal/shared/config"
	localstore "brandscope-backend/internal/shared/storage/object/local"
	"brandscope-backend/internal/workflow"
)

func main() {
	cfg := config.Load()

	siteURL := flag.String("url", "", "Site URL to analyze")
	brand := flag.String("brand", "", "Brand name to track")
	country := flag.String("country", "", "Country context (optional)")
	language := flag.String("language", "en", "Answer language")
	questions := flag.Int("questions", cfg.QuestionsPerCategory, "Questions per category")
	execute := flag.Bool("execute", false, "Also execute the generated prompts")
	outPath := flag.String("out", "", "Path to write results JSON (optional)")
	flag.Parse()

	if *siteURL == "" || *brand == "" {
		fmt.Fprintln(os.Stderr, "usage: pipelinetest -url <site> -brand <name> [-execute]")
		os.Exit(2)
	}

	llmClient, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel, cfg.LLMSearchModel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "llm client: %v\n", err)
		os.Exit(1)
	}

	store := localstore.New(cfg.LocalStoreDir)
	runRepo := runs.NewMemoryRepo()
	svc := &workflow.Service{
		Runs:                 runRepo,
		Repo:                 workflow.NewMemoryRepo(),
		Discoverer:           workflow.NewDiscoverer(cfg.PageFetchTimeout, cfg.MaxDiscoveredURLs),
		Fetcher:              workflow.NewFetcher(cfg.PageFetchTimeout, store, cfg.PageContentBudget),
		LLM:                  llmClient,
		Store:                store,
		QuestionsPerCategory: *questions,
		LLMTimeout:           cfg.LLMTimeout,
	}

	ctx := context.Background()
	run, err := runs.NewService(runRepo).Create(ctx, runs.CreateInput{
		SiteURL:   *siteURL,
		BrandName: *brand,
		Country:   *country,
		Language:  *language,
	})
	if err != nil {
		fatal("create run", err)
	}
	fmt.Printf("run %s\n", run.ID)

	discovered, err := svc.DiscoverPages(ctx, run.ID)
	if err != nil {
		fatal("discover", err)
	}
	fmt.Printf("discovered %d URLs (sitemap=%t)\n", len(discovered.URLs), discovered.FoundSitemap)

	fetched, err := svc.FetchContent(ctx, run.ID)
	if err != nil {
		fatal("fetch", err)
	}
	fmt.Printf("fetched %d pages, %d failed\n", fetched.FetchedCount, fetched.FailedCount)

	categories, err := svc.GenerateCategories(ctx, run.ID)
	if err != nil {
		fatal("categories", err)
	}
	for _, cat := range categories {
		fmt.Printf("category %q (confidence %.2f)\n", cat.Name, cat.Confidence)
	}

	prompts, err := svc.GeneratePrompts(ctx, run.ID, nil, *questions)
	if err != nil {
		fatal("prompts", err)
	}
	for _, p := range prompts {
		fmt.Printf("prompt [%s] %s\n", p.Intent, p.Question)
	}

	var output any = prompts
	if *execute {
		executed, failed, err := svc.ExecuteAllPrompts(ctx, run.ID)
		if err != nil {
			fatal("execute", err)
		}
		fmt.Printf("executed %d prompts, %d failed\n", executed, failed)

		results, err := svc.Results(ctx, run.ID)
		if err != nil {
			fatal("results", err)
		}
		output = results
	}

	encoded, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fatal("encode", err)
	}
	if *outPath != "" {
		if err := os.WriteFile(*outPath, encoded, 0o644); err != nil {
			fatal("write output", err)
		}
		fmt.Printf("wrote %s\n", *outPath)
		return
	}
	fmt.Println(string(encoded))
}

func fatal(stage string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", stage, err)
	os.Exit(1)
}
