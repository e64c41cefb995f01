package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"brandscope-backend/internal/companies"
	"brandscope-backend/internal/llm"
	openai "brandscope-backend/internal/llm/openai"
	"brandscope-backend/internal/queue"
	"brandscope-backend/internal/readiness"
	"brandscope-backend/internal/runs"
	"brandscope-backend/internal/shared/config"
	"brandscope-backend/internal/shared/server"
	"brandscope-backend/internal/shared/storage/db"
	"brandscope-backend/internal/shared/storage/object"
	localstore "brandscope-backend/internal/shared/storage/object/local"
	s3store "brandscope-backend/internal/shared/storage/object/s3"
	"brandscope-backend/internal/workflow"
)

// App holds shared dependencies for the API and worker binaries.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	RunsRepo      runs.Repo
	WorkflowRepo  workflow.Repo
	CompaniesRepo companies.Repo
	ReadinessRepo readiness.Repo

	RunsService      *runs.Service
	WorkflowService  *workflow.Service
	CompaniesService *companies.Service
	ReadinessService *readiness.Service

	RunsHandler      *runs.Handler
	WorkflowHandler  *workflow.Handler
	CompaniesHandler *companies.Handler
	ReadinessHandler *readiness.Handler

	Scheduler *companies.Scheduler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		RunsHandler:      app.RunsHandler,
		WorkflowHandler:  app.WorkflowHandler,
		CompaniesHandler: app.CompaniesHandler,
		ReadinessHandler: app.ReadinessHandler,
	})

	if cfg.SchedulerEnabled {
		if app.Queue == nil {
			return nil, fmt.Errorf("SCHEDULER_ENABLED requires BS_SQS_QUEUE_URL")
		}
		app.Scheduler = companies.NewScheduler(app.CompaniesRepo, app.Queue, cfg.SchedulerSpec)
	}

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("BS_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	cfg := app.Config

	var runRepo runs.Repo
	var wfRepo workflow.Repo
	var companyRepo companies.Repo
	var readinessRepo readiness.Repo

	if app.DB != nil {
		runRepo = &runs.PGRepo{DB: app.DB}
		wfRepo = &workflow.PGRepo{DB: app.DB}
		companyRepo = &companies.PGRepo{DB: app.DB}
		readinessRepo = &readiness.PGRepo{DB: app.DB}
	} else {
		runRepo = runs.NewMemoryRepo()
		wfRepo = workflow.NewMemoryRepo()
		companyRepo = companies.NewMemoryRepo()
		readinessRepo = readiness.NewMemoryRepo()
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	if cfg.LLMProvider == "openai" {
		client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel, cfg.LLMSearchModel)
		if err != nil {
			if !isDevLike(cfg.Env) {
				return err
			}
			log.Printf("bootstrap: OpenAI client unavailable; using placeholder LLM: %v", err)
		} else {
			llmClient = client
		}
	}

	runsSvc := runs.NewService(runRepo)
	workflowSvc := &workflow.Service{
		Runs:                 runRepo,
		Repo:                 wfRepo,
		Discoverer:           workflow.NewDiscoverer(cfg.PageFetchTimeout, cfg.MaxDiscoveredURLs),
		Fetcher:              workflow.NewFetcher(cfg.PageFetchTimeout, app.Store, cfg.PageContentBudget),
		LLM:                  llmClient,
		Store:                app.Store,
		QuestionsPerCategory: cfg.QuestionsPerCategory,
		LLMTimeout:           cfg.LLMTimeout,
	}
	companiesSvc := &companies.Service{
		Repo:     companyRepo,
		Runs:     runRepo,
		Workflow: workflowSvc,
	}
	readinessSvc := readiness.NewService(readinessRepo, llmClient, cfg.PageFetchTimeout, cfg.LLMTimeout, cfg.MaxDiscoveredURLs)

	app.RunsRepo = runRepo
	app.WorkflowRepo = wfRepo
	app.CompaniesRepo = companyRepo
	app.ReadinessRepo = readinessRepo
	app.RunsService = runsSvc
	app.WorkflowService = workflowSvc
	app.CompaniesService = companiesSvc
	app.ReadinessService = readinessSvc
	app.RunsHandler = runs.NewHandler(runsSvc)
	app.WorkflowHandler = workflow.NewHandler(workflowSvc)
	app.CompaniesHandler = companies.NewHandler(companiesSvc)
	app.ReadinessHandler = readiness.NewHandler(readinessSvc)

	return nil
}
