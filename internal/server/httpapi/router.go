package httpapi

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

var setupValidatorOnce sync.Once

// setupValidator makes gin's validator report JSON field names, adds the
// notblank rule and rejects unknown body fields.
func setupValidator() {
	setupValidatorOnce.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true

		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", validators.NotBlank)
	})
}

// NewRouter wires routes and middleware. checks are run by GET /health.
func NewRouter(h *Handler, l logging.Logger, checks map[string]HealthCheck) *gin.Engine {
	setupValidator()

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(l.With("module", "http_access")))

	router.GET("/health", health(checks))

	authGroup := router.Group("/auth")
	authGroup.POST("/login", h.Login)
	authGroup.GET("/profile", h.RequireAuth(), h.Profile)
	authGroup.POST("/logout", h.RequireAuth(), h.Logout)

	router.POST("/users", h.CreateUser)

	usersGroup := router.Group("/users")
	usersGroup.Use(h.RequireAuth())
	usersGroup.GET("", h.ListUsers)
	usersGroup.GET("/:id", h.GetUser)
	usersGroup.PUT("/:id", h.UpdateUser)
	usersGroup.DELETE("/:id", h.DeleteUser)

	return router
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		report := gin.H{}
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = "down"
				continue
			}
			report[name] = "up"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "checks": report})
	}
}
