package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHeader carries the username the presentation layer has authenticated
const UserHeader = "X-Username"

const actingUserKey = "acting_user"

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user", c.GetString(actingUserKey)),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+UserHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requireUser rejects requests without an acting user
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader(UserHeader)
		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + UserHeader + " header"})
			return
		}
		c.Set(actingUserKey, user)
		c.Next()
	}
}

func actingUser(c *gin.Context) string {
	return c.GetString(actingUserKey)
}

// requireSelf rejects profile writes aimed at another user
func requireSelf(c *gin.Context) (string, bool) {
	me := actingUser(c)
	if me != c.Param("username") {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot modify another user's profile"})
		return "", false
	}
	return me, true
}
