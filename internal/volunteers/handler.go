// Package volunteers serves volunteer applications.
package volunteers

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

// ApplyRequest is the body for POST /volunteers.
type ApplyRequest struct {
	EventID        uuid.UUID `json:"event_id" binding:"required"`
	JobType        string    `json:"job_type" binding:"required"`
	EventHostTime  int       `json:"event_host_time" binding:"min=0"`
	AdditionalInfo string    `json:"additional_info"`
	Experience     string    `json:"experience"`
}

// UpdateRequest is the body for PUT /volunteers/:id.
type UpdateRequest struct {
	JobType        string `json:"job_type" binding:"required"`
	EventHostTime  int    `json:"event_host_time" binding:"min=0"`
	AdditionalInfo string `json:"additional_info"`
	Experience     string `json:"experience"`
	Status         string `json:"status" binding:"required,oneof=submitted accepted rejected"`
}

// Handler handles volunteer endpoints.
type Handler struct {
	store  store.Volunteers
	logger *zap.Logger
}

// NewHandler creates a volunteers handler.
func NewHandler(st store.Volunteers, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, logger: logger}
}

// Register mounts the routes.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/volunteers", middleware.RequireSession())
	g.GET("", h.List)
	g.POST("", h.Apply)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// List handles GET /volunteers.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.ListVolunteers(c.Request.Context(), session.From(c).Scope())
	if err != nil {
		response.Fail(c, h.logger, "list volunteers", err)
		return
	}
	response.OK(c, list)
}

// Apply handles POST /volunteers.
func (h *Handler) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidJobType(req.JobType) {
		response.BadRequest(c, "unknown job type")
		return
	}
	sess := session.From(c)
	v := &models.Volunteer{
		UserID:         sess.Actor().ID,
		EventID:        req.EventID,
		JobType:        req.JobType,
		EventHostTime:  req.EventHostTime,
		AdditionalInfo: req.AdditionalInfo,
		Experience:     req.Experience,
		Status:         models.SubmissionSubmitted,
	}
	if err := h.store.CreateVolunteer(c.Request.Context(), sess.Scope(), v); err != nil {
		response.Fail(c, h.logger, "create volunteer", err)
		return
	}
	response.Created(c, v)
}

// Update handles PUT /volunteers/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid volunteer id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidJobType(req.JobType) {
		response.BadRequest(c, "unknown job type")
		return
	}
	v := &models.Volunteer{
		ID:             id,
		JobType:        req.JobType,
		EventHostTime:  req.EventHostTime,
		AdditionalInfo: req.AdditionalInfo,
		Experience:     req.Experience,
		Status:         req.Status,
	}
	if err := h.store.UpdateVolunteer(c.Request.Context(), session.From(c).Scope(), v); err != nil {
		response.Fail(c, h.logger, "update volunteer", err)
		return
	}
	response.OK(c, v)
}

// Delete handles DELETE /volunteers/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid volunteer id")
		return
	}
	if err := h.store.DeleteVolunteer(c.Request.Context(), session.From(c).Scope(), id); err != nil {
		response.Fail(c, h.logger, "delete volunteer", err)
		return
	}
	response.NoContent(c)
}
