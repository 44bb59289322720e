package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"escrow-service/internal/services"
	"escrow-service/internal/util"
)

// CORS allows the mobile client to call the confirmation endpoints from any
// origin, with preflight support. Applied uniformly to every client-facing
// route.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Metrics counts requests per route and status.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}

// respondError converts a service error into the boundary's {error} shape.
func respondError(c *gin.Context, err error) {
	c.JSON(services.HTTPStatus(err), gin.H{"error": err.Error()})
}
