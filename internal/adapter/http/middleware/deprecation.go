package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// DeprecatedRoute flags responses from legacy routes and points clients at
// the replacement.
func DeprecatedRoute(successor string) gin.HandlerFunc {
	link := fmt.Sprintf("<%s>; rel=\"successor-version\"", successor)

	return func(c *gin.Context) {
		c.Header("Deprecation", "true")
		c.Header("Link", link)

		c.Next()
	}
}
