package helper

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"todoapi/internal/core/domain"
	"todoapi/internal/core/model/response"
)

const (
	MessageUnexpected      = "An unexpected error occurred. Please contact support."
	MessageTooManyRequests = "Too many requests, please retry later"
)

func NewErrorResponse(status int, message, path string, fields map[string]string) response.ErrorResponse {
	return response.ErrorResponse{
		Status:           status,
		Error:            http.StatusText(status),
		Message:          message,
		Path:             path,
		Timestamp:        time.Now().UTC(),
		ValidationErrors: fields,
	}
}

// StatusFor maps an error onto its HTTP status. Anything that is not a
// domain error is a 500.
func StatusFor(err error) int {
	var domainErr *domain.Error

	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAlreadyExists:
		return http.StatusConflict
	case domain.KindValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// SendError writes the error body for err and aborts the chain. Internal
// errors are attached to the gin context for the logging middleware and
// never reach the client.
func SendError(c *gin.Context, err error) {
	status := StatusFor(err)

	var domainErr *domain.Error

	if status == http.StatusInternalServerError || !errors.As(err, &domainErr) {
		_ = c.Error(err)
		SendStatus(c, http.StatusInternalServerError, MessageUnexpected)
		return
	}

	c.AbortWithStatusJSON(status, NewErrorResponse(status, domainErr.Error(), c.Request.URL.Path, domainErr.Fields))
}

func SendStatus(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, NewErrorResponse(status, message, c.Request.URL.Path, nil))
}

func SendRouteNotFound(c *gin.Context) {
	SendStatus(c, http.StatusNotFound, fmt.Sprintf("Endpoint not found: %s %s", c.Request.Method, c.Request.URL.Path))
}

// SendRecovered is the gin.CustomRecovery handler.
func SendRecovered(c *gin.Context, recovered any) {
	_ = c.Error(fmt.Errorf("panic: %v", recovered))
	SendStatus(c, http.StatusInternalServerError, MessageUnexpected)
}
