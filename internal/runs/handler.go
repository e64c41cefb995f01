package runs

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"brandscope-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the runs service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches run lifecycle routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/runs", h.createRun)
	rg.GET("/runs", h.listRuns)
	rg.GET("/runs/:id", h.getRun)
	rg.POST("/runs/:id/pause", h.pauseRun)
	rg.POST("/runs/:id/resume", h.resumeRun)
	rg.DELETE("/runs/:id", h.deleteRun)
}

func (h *Handler) createRun(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	run, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create run", nil)
		}
		return
	}

	c.Set("runId", run.ID)
	respond.JSON(c, http.StatusCreated, run)
}

func (h *Handler) getRun(c *gin.Context) {
	id := c.Param("id")
	c.Set("runId", id)

	run, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch run", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, run)
}

func (h *Handler) listRuns(c *gin.Context) {
	limit := 20
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
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list runs", nil)
		return
	}
	if items == nil {
		items = []Run{}
	}

	respond.JSON(c, http.StatusOK, gin.H{"runs": items})
}

func (h *Handler) pauseRun(c *gin.Context) {
	id := c.Param("id")
	c.Set("runId", id)

	run, err := h.Svc.Pause(c.Request.Context(), id)
	if err != nil {
		h.respondTransitionError(c, err, "failed to pause run")
		return
	}
	respond.JSON(c, http.StatusOK, run)
}

func (h *Handler) resumeRun(c *gin.Context) {
	id := c.Param("id")
	c.Set("runId", id)

	run, err := h.Svc.Resume(c.Request.Context(), id)
	if err != nil {
		h.respondTransitionError(c, err, "failed to resume run")
		return
	}
	respond.JSON(c, http.StatusOK, run)
}

func (h *Handler) deleteRun(c *gin.Context) {
	id := c.Param("id")
	c.Set("runId", id)

	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete run", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) respondTransitionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, "invalid_state", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
