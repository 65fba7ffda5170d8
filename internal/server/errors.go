package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/quantica-hq/billing/internal/billing/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware maps billing error kinds onto HTTP statuses.
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
	return billingdomain.ErrValidation("invalid request")
}

func mapError(err error) (int, errorPayload) {
	var billingErr *billingdomain.Error
	if !errors.As(err, &billingErr) {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	payload := errorPayload{
		Type:    string(billingErr.Kind),
		Message: billingErr.Error(),
	}

	switch billingErr.Kind {
	case billingdomain.KindValidation:
		return http.StatusBadRequest, payload
	case billingdomain.KindNotFound:
		return http.StatusNotFound, payload
	case billingdomain.KindProviderUnavailable:
		return http.StatusServiceUnavailable, payload
	case billingdomain.KindConflict:
		return http.StatusConflict, payload
	default:
		// Io and Serialization are storage-side faults.
		return http.StatusInternalServerError, payload
	}
}
