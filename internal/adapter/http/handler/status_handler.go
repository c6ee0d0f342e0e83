package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const StatusMessage = "Todo API is running!"

func Status(c *gin.Context) {
	c.String(http.StatusOK, StatusMessage)
}
