package controllers

import (
	"net/http"

	"corredorflow/utils"

	"github.com/gin-gonic/gin"
)

// brokerID reads the authenticated broker id set by the JWT middleware.
func brokerID(c *gin.Context) uint {
	if v, ok := c.Get("broker_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// respondError maps a service error onto an HTTP response.
func respondError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		utils.LogError(err, c.Request.Method+" "+c.FullPath())
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
