package issuance

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ausspeedruns/backend/internal/apperr"
	"github.com/ausspeedruns/backend/internal/session"
	"github.com/ausspeedruns/backend/internal/store"
	"github.com/ausspeedruns/backend/pkg/response"
)

// GenerateTicketRequest is the body for POST /tickets/generate.
// Fields are not binding-validated so the API key is always checked first.
type GenerateTicketRequest struct {
	UserID          string `json:"userID"`
	Event           string `json:"event"`
	NumberOfTickets int    `json:"numberOfTickets"`
	Method          string `json:"method"`
	StripeID        string `json:"stripeID"`
	APIKey          string `json:"apiKey"`
}

// ConfirmTicketRequest is the body for POST /tickets/confirm.
type ConfirmTicketRequest struct {
	StripeID        string `json:"stripeID"`
	NumberOfTickets int    `json:"numberOfTickets"`
	APIKey          string `json:"apiKey"`
}

// GenerateShirtRequest is the body for POST /shirts/generate.
type GenerateShirtRequest struct {
	UserID   string `json:"userID"`
	Size     string `json:"size"`
	Colour   string `json:"colour"`
	Method   string `json:"method"`
	StripeID string `json:"stripeID"`
	APIKey   string `json:"apiKey"`
}

// ConfirmShirtRequest is the body for POST /shirts/confirm.
type ConfirmShirtRequest struct {
	StripeID string `json:"stripeID"`
	APIKey   string `json:"apiKey"`
}

// Lister lists issued resources under the caller's session.
type Lister interface {
	store.Tickets
	store.ShirtOrders
}

// Handler serves the issuance endpoints.
type Handler struct {
	svc    *Service
	lister Lister
	logger *zap.Logger
}

// NewHandler creates an issuance handler.
func NewHandler(svc *Service, lister Lister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, lister: lister, logger: logger}
}

// Register mounts the routes.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/tickets", h.ListTickets)
	r.POST("/tickets/generate", h.GenerateTicket)
	r.POST("/tickets/confirm", h.ConfirmTicket)
	r.GET("/shirts", h.ListShirts)
	r.POST("/shirts/generate", h.GenerateShirt)
	r.POST("/shirts/confirm", h.ConfirmShirt)
}

// GenerateTicket handles POST /tickets/generate.
func (h *Handler) GenerateTicket(c *gin.Context) {
	var req GenerateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.ErrInvalid)
		return
	}
	t, err := h.svc.GenerateTicket(c.Request.Context(), req.APIKey, TicketRequest{
		UserID:           parseID(req.UserID),
		Event:            req.Event,
		NumberOfTickets:  req.NumberOfTickets,
		Method:           req.Method,
		PaymentReference: req.StripeID,
	})
	if err != nil {
		response.Fail(c, h.logger, "generate ticket", err)
		return
	}
	response.Created(c, t)
}

// ConfirmTicket handles POST /tickets/confirm.
func (h *Handler) ConfirmTicket(c *gin.Context) {
	var req ConfirmTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.ErrInvalid)
		return
	}
	t, err := h.svc.ConfirmTicket(c.Request.Context(), req.APIKey, req.StripeID, req.NumberOfTickets)
	if err != nil {
		response.Fail(c, h.logger, "confirm ticket", err)
		return
	}
	response.OK(c, t)
}

// GenerateShirt handles POST /shirts/generate.
func (h *Handler) GenerateShirt(c *gin.Context) {
	var req GenerateShirtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.ErrInvalid)
		return
	}
	o, err := h.svc.GenerateShirt(c.Request.Context(), req.APIKey, ShirtRequest{
		UserID:           parseID(req.UserID),
		Size:             req.Size,
		Colour:           req.Colour,
		Method:           req.Method,
		PaymentReference: req.StripeID,
	})
	if err != nil {
		response.Fail(c, h.logger, "generate shirt", err)
		return
	}
	response.Created(c, o)
}

// ConfirmShirt handles POST /shirts/confirm.
func (h *Handler) ConfirmShirt(c *gin.Context) {
	var req ConfirmShirtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.ErrInvalid)
		return
	}
	o, err := h.svc.ConfirmShirt(c.Request.Context(), req.APIKey, req.StripeID)
	if err != nil {
		response.Fail(c, h.logger, "confirm shirt", err)
		return
	}
	response.OK(c, o)
}

// ListTickets handles GET /tickets. Non-managers only see their own.
func (h *Handler) ListTickets(c *gin.Context) {
	list, err := h.lister.ListTickets(c.Request.Context(), session.From(c).Scope())
	if err != nil {
		response.Fail(c, h.logger, "list tickets", err)
		return
	}
	response.OK(c, list)
}

// ListShirts handles GET /shirts.
func (h *Handler) ListShirts(c *gin.Context) {
	list, err := h.lister.ListShirtOrders(c.Request.Context(), session.From(c).Scope())
	if err != nil {
		response.Fail(c, h.logger, "list shirts", err)
		return
	}
	response.OK(c, list)
}

// parseID maps malformed ids to uuid.Nil, which validation rejects after the
// API key check.
func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
