// Package events serves the event records. Everyone can read published
// events; only admins see drafts or change anything.
package events

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

// EventRequest is the body for POST /events and PUT /events/:id.
type EventRequest struct {
	Name                 string     `json:"name" binding:"required"`
	Shortname            string     `json:"shortname" binding:"required"`
	Published            bool       `json:"published"`
	AcceptingSubmissions bool       `json:"accepting_submissions"`
	AcceptingTickets     bool       `json:"accepting_tickets"`
	AcceptingVolunteers  bool       `json:"accepting_volunteers"`
	AcceptingShirts      bool       `json:"accepting_shirts"`
	ScheduleReleased     bool       `json:"schedule_released"`
	Timezone             string     `json:"event_timezone"`
	StartDate            *time.Time `json:"start_date"`
	EndDate              *time.Time `json:"end_date"`
	Raised               float64    `json:"raised"`
}

func (r EventRequest) model(id uuid.UUID) *models.Event {
	return &models.Event{
		ID:                   id,
		Name:                 r.Name,
		Shortname:            r.Shortname,
		Published:            r.Published,
		AcceptingSubmissions: r.AcceptingSubmissions,
		AcceptingTickets:     r.AcceptingTickets,
		AcceptingVolunteers:  r.AcceptingVolunteers,
		AcceptingShirts:      r.AcceptingShirts,
		ScheduleReleased:     r.ScheduleReleased,
		Timezone:             r.Timezone,
		StartDate:            r.StartDate,
		EndDate:              r.EndDate,
		Raised:               r.Raised,
	}
}

// Handler handles event endpoints.
type Handler struct {
	store  store.Events
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(st store.Events, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, logger: logger}
}

// Register mounts the routes.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/events", h.List)
	r.POST("/events", h.Create)
	r.PUT("/events/:id", h.Update)
	r.DELETE("/events/:id", h.Delete)
	r.GET("/event/:shortname", h.Get)
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.ListEvents(c.Request.Context(), session.From(c).Scope())
	if err != nil {
		response.Fail(c, h.logger, "list events", err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /event/:shortname.
func (h *Handler) Get(c *gin.Context) {
	e, err := h.store.GetEventByShortname(c.Request.Context(), session.From(c).Scope(), c.Param("shortname"))
	if err != nil {
		response.Fail(c, h.logger, "get event", err)
		return
	}
	response.OK(c, e)
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := req.model(uuid.Nil)
	if err := h.store.CreateEvent(c.Request.Context(), session.From(c).Scope(), e); err != nil {
		response.Fail(c, h.logger, "create event", err)
		return
	}
	response.Created(c, e)
}

// Update handles PUT /events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := req.model(id)
	if err := h.store.UpdateEvent(c.Request.Context(), session.From(c).Scope(), e); err != nil {
		response.Fail(c, h.logger, "update event", err)
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.store.DeleteEvent(c.Request.Context(), session.From(c).Scope(), id); err != nil {
		response.Fail(c, h.logger, "delete event", err)
		return
	}
	response.NoContent(c)
}
