package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	msgUnauthorized     = "Unauthorized access"
	msgValidationFailed = "Validation failed"
	msgUnavailable      = "Something went wrong. Please try again later."
	msgBadRequest       = "Invalid request body"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	StatusCode int                   `json:"statusCode"`
	Message    string                `json:"message"`
	Errors     []map[string][]string `json:"errors,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// statusFor maps a service error to an HTTP status and client message.
// Token and credential failures are indistinguishable to the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrLedgerUnavailable),
		errors.Is(err, common.ErrDirectoryUnavailable):
		return http.StatusServiceUnavailable, msgUnavailable
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, "User with this email already exists"
	default:
		return http.StatusInternalServerError, msgUnavailable
	}
}

func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
	if msg == "" {
		return msgValidationFailed
	}
	r := []rune(msg)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	resp := errorResponse{StatusCode: status, Message: msg}
	if h.dev {
		resp.Error = err.Error()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, resp)
}

// writeBindError renders a request-body binding failure. Field validation
// failures are listed per field; anything else is a malformed body.
func (h *Handler) writeBindError(c *gin.Context, err error) {
	resp := errorResponse{StatusCode: http.StatusBadRequest, Message: msgBadRequest}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Message = msgValidationFailed
		resp.Errors = formatValidationErrors(verrs)
	}
	if h.dev {
		resp.Error = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

// formatValidationErrors groups messages by field, in order of first
// appearance: [{"email": ["Invalid email format"]}, ...].
func formatValidationErrors(verrs validator.ValidationErrors) []map[string][]string {
	var (
		order  []string
		byName = map[string][]string{}
	)
	for _, fe := range verrs {
		name := fe.Field()
		if _, seen := byName[name]; !seen {
			order = append(order, name)
		}
		byName[name] = append(byName[name], fieldMessage(fe))
	}

	out := make([]map[string][]string, 0, len(order))
	for _, name := range order {
		out = append(out, map[string][]string{name: byName[name]})
	}
	return out
}

// requestMessages holds the per-request wording for a field rule, keyed by
// "<struct>.<Field>.<tag>".
var requestMessages = map[string]string{
	"loginRequest.Email.email":        "Invalid email format",
	"createUserRequest.Name.min":      "Name is required and should be at least 4 characters long",
	"createUserRequest.Name.notblank": "Name cannot be only spaces",
	"createUserRequest.Email.email":   "Invalid email format",
	"createUserRequest.Password.min":  "Password must be at least 6 characters long",
	"updateUserRequest.Name.min":      "Name cannot be empty and should be at least 4 characters long",
	"updateUserRequest.Name.notblank": "Name cannot be only spaces",
	"updateUserRequest.Password.min":  "Password must be at least 6 characters long",
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := requestMessages[fe.StructNamespace()+"."+fe.Tag()]; ok {
		return msg
	}

	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s should not be empty", field)
	case "email":
		return fmt.Sprintf("%s must be an email", field)
	case "min":
		return fmt.Sprintf("%s must be longer than or equal to %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be shorter than or equal to %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
