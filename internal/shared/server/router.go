package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"brandscope-backend/internal/companies"
	"brandscope-backend/internal/readiness"
	"brandscope-backend/internal/runs"
	"brandscope-backend/internal/shared/config"
	"brandscope-backend/internal/shared/metrics"
	"brandscope-backend/internal/shared/server/middleware"
	"brandscope-backend/internal/shared/server/respond"
	"brandscope-backend/internal/workflow"
)

// RouterDeps collects the handlers the router wires up.
type RouterDeps struct {
	Config           config.Config
	RunsHandler      *runs.Handler
	WorkflowHandler  *workflow.Handler
	CompaniesHandler *companies.Handler
	ReadinessHandler *readiness.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"STATUS_POLL": {Rate: 1, Burst: 3},
			},
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/readiness/:id" {
					return "STATUS_POLL"
				}
				return ""
			},
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())

	if deps.RunsHandler != nil {
		deps.RunsHandler.RegisterRoutes(api)
	}
	if deps.WorkflowHandler != nil {
		deps.WorkflowHandler.RegisterRoutes(api)
	}
	if deps.CompaniesHandler != nil {
		deps.CompaniesHandler.RegisterRoutes(api)
	}
	if deps.ReadinessHandler != nil {
		deps.ReadinessHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
