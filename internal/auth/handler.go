package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ausspeedruns/backend/internal/access"
	"github.com/ausspeedruns/backend/internal/apperr"
	"github.com/ausspeedruns/backend/internal/middleware"
	"github.com/ausspeedruns/backend/internal/models"
	"github.com/ausspeedruns/backend/internal/session"
	"github.com/ausspeedruns/backend/pkg/response"
)

// APIKeyHeader carries the shared secret on GET requests.
const APIKeyHeader = "X-API-Key"

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the login response.
type TokenResponse struct {
	Token string        `json:"token"`
	Actor *access.Actor `json:"actor"`
}

// MeResponse is the GET /auth/me response.
type MeResponse struct {
	User  models.UserPublic `json:"user"`
	Actor *access.Actor     `json:"actor"`
}

// ConfirmVerificationRequest is the body for POST /account-verification/confirm.
type ConfirmVerificationRequest struct {
	Code   string `json:"code"`
	APIKey string `json:"apiKey"`
}

// RoleRequest is the body for POST /roles.
type RoleRequest struct {
	Name          string `json:"name" binding:"required"`
	Admin         bool   `json:"admin"`
	ManageUsers   bool   `json:"canManageUsers"`
	ManageContent bool   `json:"canManageContent"`
	Runner        bool   `json:"runner"`
	Volunteer     bool   `json:"volunteer"`
	Event         string `json:"event"`
}

// AssignRoleRequest is the body for POST /users/:id/roles.
type AssignRoleRequest struct {
	RoleID uuid.UUID `json:"role_id" binding:"required"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/auth/register", h.SignUp)
	r.POST("/auth/login", h.Login)
	r.GET("/auth/me", middleware.RequireSession(), h.Me)
	r.GET("/account-verification", h.LookupVerification)
	r.POST("/account-verification/confirm", h.ConfirmVerification)
	r.POST("/roles", middleware.RequireSession(), h.CreateRole)
	r.POST("/users/:id/roles", middleware.RequireSession(), h.AssignRole)
}

// SignUp handles POST /auth/register.
func (h *Handler) SignUp(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.Register(c.Request.Context(), RegisterInput{
		Username: req.Username, Name: req.Name, Email: req.Email, Password: req.Password,
	})
	if err != nil {
		response.Fail(c, h.logger, "register", err)
		return
	}
	response.Created(c, u.ToPublic())
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	token, actor, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, ErrBadCredentials) {
		response.Unauthorized(c, ErrBadCredentials.Error())
		return
	}
	if err != nil {
		response.Fail(c, h.logger, "login", err)
		return
	}
	response.OK(c, TokenResponse{Token: token, Actor: actor})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	sess := session.From(c)
	u, err := h.svc.Me(c.Request.Context(), sess)
	if err != nil {
		response.Fail(c, h.logger, "me", err)
		return
	}
	response.OK(c, MeResponse{User: u.ToPublic(), Actor: sess.Actor()})
}

// LookupVerification handles GET /account-verification?code=.
func (h *Handler) LookupVerification(c *gin.Context) {
	v, err := h.svc.LookupVerification(c.Request.Context(), c.GetHeader(APIKeyHeader), c.Query("code"))
	if err != nil {
		response.Fail(c, h.logger, "verification lookup", err)
		return
	}
	response.OK(c, v)
}

// ConfirmVerification handles POST /account-verification/confirm.
func (h *Handler) ConfirmVerification(c *gin.Context) {
	var req ConfirmVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.ErrInvalid)
		return
	}
	u, err := h.svc.ConfirmVerification(c.Request.Context(), req.APIKey, req.Code)
	if err != nil {
		response.Fail(c, h.logger, "verification confirm", err)
		return
	}
	response.OK(c, u.ToPublic())
}

// CreateRole handles POST /roles.
func (h *Handler) CreateRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role := &models.Role{
		Name: req.Name,
		Capabilities: access.Capabilities{
			Admin: req.Admin, ManageUsers: req.ManageUsers, ManageContent: req.ManageContent,
			Runner: req.Runner, Volunteer: req.Volunteer,
		},
		Event: req.Event,
	}
	if err := h.svc.CreateRole(c.Request.Context(), session.From(c), role); err != nil {
		response.Fail(c, h.logger, "create role", err)
		return
	}
	response.Created(c, role)
}

// AssignRole handles POST /users/:id/roles.
func (h *Handler) AssignRole(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.AssignRole(c.Request.Context(), session.From(c), userID, req.RoleID); err != nil {
		response.Fail(c, h.logger, "assign role", err)
		return
	}
	response.NoContent(c)
}
