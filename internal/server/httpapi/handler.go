// Package httpapi is the HTTP surface of authkeeper, built on gin.
package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Guard authenticates a raw Authorization header value.
type Guard interface {
	AuthenticateHeader(ctx context.Context, header string) (*services.Principal, error)
}

// Sessions issues and revokes access tokens.
type Sessions interface {
	Login(ctx context.Context, email, password, presented string) (*auth.IssuedToken, error)
	Logout(ctx context.Context, token string) error
}

// Users is the user directory management API.
type Users interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id int64, name, password *string) (*models.User, error)
	Delete(ctx context.Context, id int64) (*models.User, error)
}

type Handler struct {
	guard    Guard
	sessions Sessions
	users    Users
	logger   logging.Logger
	dev      bool
}

// NewHandler builds the handler set. In dev mode error responses carry the
// underlying error text.
func NewHandler(g Guard, s Sessions, u Users, l logging.Logger, dev bool) *Handler {
	return &Handler{
		guard:    g,
		sessions: s,
		users:    u,
		logger:   l.With("module", "http_server"),
		dev:      dev,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for a token. A bearer token sent along is
// superseded by the new one.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	// A malformed header just means nothing to supersede.
	presented, _ := common.ParseBearer(c.GetHeader(common.AuthorizationHeaderName))

	tok, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password, presented)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{AccessToken: tok.Value})
}

func (h *Handler) Profile(c *gin.Context) {
	p, ok := services.PrincipalFromContext(c.Request.Context())
	if !ok {
		h.writeError(c, common.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required,min=4,notblank"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	u, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) ListUsers(c *gin.Context) {
	list, err := h.users.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type updateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=4,notblank"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	u, err := h.users.Update(c.Request.Context(), id, req.Name, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	u, err := h.users.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    msgValidationFailed,
			Errors:     []map[string][]string{{"id": {"Id must be a positive integer"}}},
		})
		return 0, false
	}
	return id, true
}
