package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
	draftdomain "github.com/smallbiznis/cbam/internal/draft/domain"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	"github.com/smallbiznis/cbam/internal/ratelimit"
	reportdomain "github.com/smallbiznis/cbam/internal/report/domain"
	"github.com/smallbiznis/cbam/internal/session"
	"github.com/smallbiznis/cbam/internal/workbench"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInternal           = errors.New("internal_error")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// fieldErrors maps domain validation sentinels to the offending field.
var fieldErrors = []struct {
	err     error
	field   string
	message string
}{
	{emissiondomain.ErrInvalidCNCode, "cn_code", emissiondomain.InvalidCodeMessage},
	{emissiondomain.ErrInvalidProductionQty, "production_qty", "Production quantity must be greater than 0"},
	{emissiondomain.ErrNegativeQuantity, "quantity", "Quantities must be finite and not negative"},
	{authdomain.ErrInvalidEmail, "email", "invalid email address"},
	{authdomain.ErrWeakPassword, "password", "password is too short"},
	{draftdomain.ErrInvalidSlot, "slot", "invalid draft slot"},
	{draftdomain.ErrUnknownField, "field", "unknown form field"},
	{draftdomain.ErrRowOutOfRange, "precursors", "precursor row out of range"},
	{draftdomain.ErrInvalidText, "field", "form values must be valid UTF-8"},
	{ErrInvalidRequest, "request", "invalid request"},
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	for _, fe := range fieldErrors {
		if errors.Is(err, fe.err) {
			return http.StatusBadRequest, errorPayload{
				Type:    "validation_error",
				Message: "validation error",
				Errors: []ValidationError{
					{Field: fe.field, Code: fe.err.Error(), Message: fe.message},
				},
			}
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, reportdomain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: unauthorizedMessage(err),
		}
	case errors.Is(err, authdomain.ErrUserExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "an account with this email already exists",
		}
	case errors.Is(err, workbench.ErrExportInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "conflict_in_progress",
			Message: "an export is already in progress",
		}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many attempts, try again later",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, session.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func unauthorizedMessage(err error) string {
	if errors.Is(err, authdomain.ErrInvalidCredentials) {
		return "invalid email or password"
	}
	return "unauthorized"
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Message
}
