package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ct "todoapi/pkg/context"
)

const HeaderRequestID = "X-Request-ID"

// CurrentMiddleware stores the request metadata in the request context and
// echoes the request id, generating one when the client sent none.
func CurrentMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)

		if requestID == "" {
			requestID = uuid.NewString()
		}

		current := &ct.Current{
			RequestID: requestID,
			ClientIP:  c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
		}

		c.Request = c.Request.WithContext(ct.NewContext(c.Request.Context(), current))
		c.Set("current", current)
		c.Header(HeaderRequestID, requestID)

		c.Next()
	}
}

func GetCurrent(c *gin.Context) *ct.Current {
	if current, ok := c.Get("current"); ok {
		if curr, ok := current.(*ct.Current); ok {
			return curr
		}
	}

	if current, ok := ct.FromContext(c.Request.Context()); ok {
		return current
	}

	return &ct.Current{}
}
