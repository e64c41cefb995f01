package readiness

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"brandscope-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the readiness service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches readiness-job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/readiness", h.startJob)
	rg.GET("/readiness/:id", h.getStatus)
}

func (h *Handler) startJob(c *gin.Context) {
	var in struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	run, err := h.Svc.Start(c.Request.Context(), in.URL)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start readiness job", nil)
		}
		return
	}

	respond.Accepted(c, gin.H{
		"runId":  run.ID,
		"status": run.Status,
	})
}

func (h *Handler) getStatus(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	if ok, retryAfter := h.Svc.AllowPoll(runID); !ok {
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too frequently", nil)
		return
	}

	status, err := h.Svc.Status(c.Request.Context(), runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "readiness run not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch status", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, status)
}
