package workflow

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"brandscope-backend/internal/runs"
	"brandscope-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the workflow service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the step-executor routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/runs/:id/discover", h.discover)
	rg.POST("/runs/:id/fetch", h.fetch)
	rg.POST("/runs/:id/categories", h.generateCategories)
	rg.POST("/runs/:id/categories/custom", h.addCustomCategory)
	rg.GET("/runs/:id/categories", h.listCategories)
	rg.POST("/runs/:id/prompts", h.generatePrompts)
	rg.GET("/runs/:id/prompts", h.listPrompts)
	rg.POST("/runs/:id/prompts/:promptId/execute", h.executePrompt)
	rg.POST("/runs/:id/execute", h.executeAll)
	rg.GET("/runs/:id/results", h.results)
}

func (h *Handler) discover(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	result, err := h.Svc.DiscoverPages(c.Request.Context(), runID)
	if err != nil {
		h.respondStepError(c, err, "failed to discover pages")
		return
	}
	respond.JSON(c, http.StatusOK, result)
}

func (h *Handler) fetch(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	result, err := h.Svc.FetchContent(c.Request.Context(), runID)
	if err != nil {
		h.respondStepError(c, err, "failed to fetch content")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"fetchedCount": result.FetchedCount,
		"failedCount":  result.FailedCount,
		"pages":        result.Pages,
	})
}

func (h *Handler) generateCategories(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	categories, err := h.Svc.GenerateCategories(c.Request.Context(), runID)
	if err != nil {
		h.respondStepError(c, err, "failed to generate categories")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) addCustomCategory(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	category, err := h.Svc.AddCustomCategory(c.Request.Context(), runID, in.Name, in.Description)
	if err != nil {
		h.respondStepError(c, err, "failed to add category")
		return
	}
	respond.JSON(c, http.StatusCreated, category)
}

func (h *Handler) listCategories(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	categories, err := h.Svc.ListCategories(c.Request.Context(), runID)
	if err != nil {
		h.respondStepError(c, err, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []Category{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) generatePrompts(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	var in struct {
		CategoryIDs          []string `json:"categoryIds"`
		QuestionsPerCategory int      `json:"questionsPerCategory"`
	}
	// body is optional; defaults cover the empty case
	_ = c.ShouldBindJSON(&in)

	prompts, err := h.Svc.GeneratePrompts(c.Request.Context(), runID, in.CategoryIDs, in.QuestionsPerCategory)
	if err != nil {
		h.respondStepError(c, err, "failed to generate prompts")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"prompts": prompts})
}

func (h *Handler) listPrompts(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	prompts, err := h.Svc.ListPrompts(c.Request.Context(), runID)
	if err != nil {
		h.respondStepError(c, err, "failed to list prompts")
		return
	}
	if prompts == nil {
		prompts = []Prompt{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"prompts": prompts})
}

func (h *Handler) executePrompt(c *gin.Context) {
	runID := c.Param("id")
	promptID := c.Param("promptId")
	c.Set("runId", runID)
	c.Set("promptId", promptID)

	result, err := h.Svc.ExecutePrompt(c.Request.Context(), runID, promptID)
	if err != nil {
		h.respondStepError(c, err, "failed to execute prompt")
		return
	}
	respond.JSON(c, http.StatusOK, result)
}

func (h *Handler) executeAll(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	executed, failed, err := h.Svc.ExecuteAllPrompts(c.Request.Context(), runID)
	if err != nil && !errors.Is(err, ErrRunPaused) {
		h.respondStepError(c, err, "failed to execute prompts")
		return
	}

	resp := gin.H{"executed": executed, "failed": failed}
	if errors.Is(err, ErrRunPaused) {
		resp["paused"] = true
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) results(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	items, err := h.Svc.Results(c.Request.Context(), runID)
	if err != nil {
		h.respondStepError(c, err, "failed to fetch results")
		return
	}
	if items == nil {
		items = []StoredAnalysis{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"results": items})
}

func (h *Handler) respondStepError(c *gin.Context, err error, fallback string) {
	var schemaErr *SchemaError
	switch {
	case errors.Is(err, runs.ErrNotFound), errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, runs.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrStepNotReady):
		respond.Error(c, http.StatusConflict, "step_not_ready", err.Error(), nil)
	case errors.Is(err, ErrRunPaused):
		respond.Error(c, http.StatusConflict, "run_paused", "run is paused", nil)
	case errors.As(err, &schemaErr):
		respond.Error(c, http.StatusBadGateway, "llm_schema_mismatch", schemaErr.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusGatewayTimeout, "llm_timeout", "upstream call timed out", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
