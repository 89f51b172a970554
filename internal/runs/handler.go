// Package runs serves the public run schedule of an event.
package runs

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/session"
	"github.com/ausspeedruns/backend/internal/store"
	"github.com/ausspeedruns/backend/pkg/response"
)

// RunRequest is the body for POST /events/:id/runs.
type RunRequest struct {
	Game          string     `json:"game" binding:"required"`
	Category      string     `json:"category"`
	Platform      string     `json:"platform"`
	Estimate      string     `json:"estimate"`
	Runners       []string   `json:"runners"`
	ScheduledTime *time.Time `json:"scheduled_time"`
}

// Handler handles run endpoints.
type Handler struct {
	store  store.Runs
	logger *zap.Logger
}

// NewHandler creates a runs handler.
func NewHandler(st store.Runs, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, logger: logger}
}

// Register mounts the routes.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/events/:id/runs", h.List)
	r.POST("/events/:id/runs", h.Create)
}

// List handles GET /events/:id/runs.
func (h *Handler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.store.ListRuns(c.Request.Context(), session.From(c).Scope(), eventID)
	if err != nil {
		response.Fail(c, h.logger, "list runs", err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /events/:id/runs.
func (h *Handler) Create(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	run := &models.Run{
		EventID:       eventID,
		Game:          req.Game,
		Category:      req.Category,
		Platform:      req.Platform,
		Estimate:      req.Estimate,
		Runners:       req.Runners,
		ScheduledTime: req.ScheduledTime,
	}
	if err := h.store.CreateRun(c.Request.Context(), session.From(c).Scope(), run); err != nil {
		response.Fail(c, h.logger, "create run", err)
		return
	}
	response.Created(c, run)
}
