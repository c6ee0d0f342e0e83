package util

import "github.com/gin-gonic/gin"

// ParamsFromJSON decodes the request body into a fresh T.
func ParamsFromJSON[T any](c *gin.Context) (T, error) {
	var params T

	if err := c.ShouldBindJSON(&params); err != nil {
		return params, err
	}

	return params, nil
}

// ParamsFromURI binds the route parameters into a fresh T.
func ParamsFromURI[T any](c *gin.Context) (T, error) {
	var params T

	if err := c.ShouldBindUri(&params); err != nil {
		return params, err
	}

	return params, nil
}
