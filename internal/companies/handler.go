package companies

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"brandscope-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the companies service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches company routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/companies", h.createCompany)
	rg.GET("/companies", h.listCompanies)
	rg.GET("/companies/:companyId", h.getCompany)
	rg.DELETE("/companies/:companyId", h.deleteCompany)
	rg.POST("/companies/:companyId/prompts", h.addPrompt)
	rg.GET("/companies/:companyId/prompts", h.listPrompts)
	rg.PATCH("/companies/:companyId/prompts/:promptId", h.updatePrompt)
	rg.POST("/companies/:companyId/execute", h.execute)
}

func (h *Handler) createCompany(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	company, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err, "failed to create company")
		return
	}
	respond.JSON(c, http.StatusCreated, company)
}

func (h *Handler) listCompanies(c *gin.Context) {
	limit := 50
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	items, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err, "failed to list companies")
		return
	}
	if items == nil {
		items = []Company{}
	}
	respond.JSON(c, http.StatusOK, gin.H{"companies": items})
}

func (h *Handler) getCompany(c *gin.Context) {
	company, err := h.Svc.Get(c.Request.Context(), c.Param("companyId"))
	if err != nil {
		h.respondError(c, err, "failed to fetch company")
		return
	}
	respond.JSON(c, http.StatusOK, company)
}

func (h *Handler) deleteCompany(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("companyId")); err != nil {
		h.respondError(c, err, "failed to delete company")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) addPrompt(c *gin.Context) {
	var in AddPromptInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	prompt, err := h.Svc.AddPrompt(c.Request.Context(), c.Param("companyId"), in)
	if err != nil {
		h.respondError(c, err, "failed to add prompt")
		return
	}
	respond.JSON(c, http.StatusCreated, prompt)
}

func (h *Handler) listPrompts(c *gin.Context) {
	prompts, err := h.Svc.ListPrompts(c.Request.Context(), c.Param("companyId"))
	if err != nil {
		h.respondError(c, err, "failed to list prompts")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"prompts": prompts})
}

func (h *Handler) updatePrompt(c *gin.Context) {
	var in struct {
		Active *bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Active == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "active flag is required", nil)
		return
	}

	if err := h.Svc.SetPromptActive(c.Request.Context(), c.Param("companyId"), c.Param("promptId"), *in.Active); err != nil {
		h.respondError(c, err, "failed to update prompt")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) execute(c *gin.Context) {
	result, err := h.Svc.ExecuteScheduled(c.Request.Context(), c.Param("companyId"))
	if err != nil && result.Executed == 0 {
		h.respondError(c, err, "failed to execute company prompts")
		return
	}
	respond.JSON(c, http.StatusOK, result)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "company not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
