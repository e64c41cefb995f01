package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port                 string
	CORSAllowOrigin      []string
	ObjectStoreType      string
	LocalStoreDir        string
	AWSRegion            string
	S3Bucket             string
	S3Prefix             string
	LLMProvider          string
	LLMModel             string
	LLMSearchModel       string
	DatabaseURL          string
	Env                  string
	MaxDiscoveredURLs    int
	PageContentBudget    int
	QuestionsPerCategory int
	PageFetchTimeout     time.Duration
	LLMTimeout           time.Duration
	SchedulerEnabled     bool
	SchedulerSpec        string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:                 getEnv("PORT", "8080"),
		CORSAllowOrigin:      splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:      normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:        getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:            getEnv("AWS_REGION", ""),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		S3Prefix:             getEnv("S3_PREFIX", ""),
		LLMProvider:          getEnv("LLM_PROVIDER", "openai"),
		LLMModel:             getEnv("LLM_MODEL", ""),
		LLMSearchModel:       getEnv("LLM_SEARCH_MODEL", ""),
		DatabaseURL:          dbURL,
		Env:                  env,
		MaxDiscoveredURLs:    getEnvInt("MAX_DISCOVERED_URLS", 50),
		PageContentBudget:    getEnvInt("PAGE_CONTENT_BUDGET", 2000),
		QuestionsPerCategory: getEnvInt("QUESTIONS_PER_CATEGORY", 5),
		PageFetchTimeout:     getEnvDuration("PAGE_FETCH_TIMEOUT_SECONDS", 12*time.Second),
		LLMTimeout:           getEnvDuration("LLM_TIMEOUT_SECONDS", 120*time.Second),
		SchedulerEnabled:     getEnvBool("SCHEDULER_ENABLED", false),
		SchedulerSpec:        getEnv("SCHEDULER_SPEC", "0 6 * * *"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	seconds := getEnvInt(key, 0)
	if seconds <= 0 {
		return def
	}
	return time.Duration(seconds) * time.Second
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
