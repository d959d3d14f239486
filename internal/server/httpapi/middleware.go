package httpapi

import (
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	tokenKey        = "access_token"
)

// RequestLogger logs one line per request with its duration and status.
// Incoming X-Request-ID values are kept, otherwise one is generated.
func RequestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		c.Next()

		l.Info(c.Request.Context(), "request handled",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// RequireAuth runs the guard and attaches the principal to the request
// context. The raw token is kept under tokenKey for logout.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)

		p, err := h.guard.AuthenticateHeader(c.Request.Context(), header)
		if err != nil {
			h.writeError(c, err)
			return
		}

		token, _ := common.ParseBearer(header)
		c.Set(tokenKey, token)
		c.Request = c.Request.WithContext(services.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}
