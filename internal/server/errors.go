package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voixlabs/dialdash/internal/calllog"
	"github.com/voixlabs/dialdash/internal/contact"
	"github.com/voixlabs/dialdash/internal/deviceapi"
	"github.com/voixlabs/dialdash/internal/devicesettings"
	"github.com/voixlabs/dialdash/internal/store"
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
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
	ErrInternal        = errors.New("internal_error")
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

func mapError(err error) (int, errorPayload) {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var apiErr *deviceapi.APIError
	var remoteErr *store.RemoteError

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, store.ErrInvalidCredentials),
		errors.Is(err, store.ErrInvalidToken),
		errors.Is(err, calllog.ErrUnauthenticated),
		errors.Is(err, devicesettings.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, contact.ErrNoMatch):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, devicesettings.ErrInvalidHost):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid request",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	case errors.Is(err, deviceapi.ErrNotConfigured):
		return http.StatusBadRequest, errorPayload{
			Type:    "not_configured",
			Message: "device API is not configured",
		}
	case errors.As(err, &apiErr),
		errors.As(err, &remoteErr),
		errors.Is(err, contact.ErrStoreUnavailable):
		return http.StatusBadGateway, errorPayload{
			Type:    "bad_gateway",
			Message: "upstream request failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
