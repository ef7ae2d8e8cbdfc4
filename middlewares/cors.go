package middlewares

import (
	"github.com/gin-gonic/gin"
)

// CORS mirrors the headers the hosted deployments send so the static site can
// call the API from another origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
