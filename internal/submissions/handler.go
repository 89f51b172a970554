// Package submissions serves runners' game submissions. Runners manage their
// own while the submission is still under review; content managers see and
// change everything.
package submissions

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ausspeedruns/backend/internal/middleware"
	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/session"
	"github.com/ausspeedruns/backend/internal/store"
	"github.com/ausspeedruns/backend/pkg/response"
)

// CreateRequest is the body for POST /submissions.
type CreateRequest struct {
	EventID  uuid.UUID `json:"event_id" binding:"required"`
	Game     string    `json:"game" binding:"required"`
	Category string    `json:"category"`
	Platform string    `json:"platform"`
	Estimate string    `json:"estimate"`
}

// UpdateRequest is the body for PUT /submissions/:id.
type UpdateRequest struct {
	Game     string `json:"game" binding:"required"`
	Category string `json:"category"`
	Platform string `json:"platform"`
	Estimate string `json:"estimate"`
	Status   string `json:"status" binding:"required,oneof=submitted accepted backup rejected"`
}

// Handler handles submission endpoints.
type Handler struct {
	store  store.Submissions
	logger *zap.Logger
}

// NewHandler creates a submissions handler.
func NewHandler(st store.Submissions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, logger: logger}
}

// Register mounts the routes.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/submissions", middleware.RequireSession())
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// List handles GET /submissions.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.ListSubmissions(c.Request.Context(), session.From(c).Scope())
	if err != nil {
		response.Fail(c, h.logger, "list submissions", err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /submissions. The caller is the runner and new
// submissions always start in the submitted state.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sess := session.From(c)
	sub := &models.Submission{
		RunnerID: sess.Actor().ID,
		EventID:  req.EventID,
		Game:     req.Game,
		Category: req.Category,
		Platform: req.Platform,
		Estimate: req.Estimate,
		Status:   models.SubmissionSubmitted,
	}
	if err := h.store.CreateSubmission(c.Request.Context(), sess.Scope(), sub); err != nil {
		response.Fail(c, h.logger, "create submission", err)
		return
	}
	response.Created(c, sub)
}

// Update handles PUT /submissions/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid submission id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sub := &models.Submission{
		ID:       id,
		Game:     req.Game,
		Category: req.Category,
		Platform: req.Platform,
		Estimate: req.Estimate,
		Status:   req.Status,
	}
	if err := h.store.UpdateSubmission(c.Request.Context(), session.From(c).Scope(), sub); err != nil {
		response.Fail(c, h.logger, "update submission", err)
		return
	}
	response.OK(c, sub)
}

// Delete handles DELETE /submissions/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid submission id")
		return
	}
	if err := h.store.DeleteSubmission(c.Request.Context(), session.From(c).Scope(), id); err != nil {
		response.Fail(c, h.logger, "delete submission", err)
		return
	}
	response.NoContent(c)
}
