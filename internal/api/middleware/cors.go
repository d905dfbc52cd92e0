package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DefaultCORSConfig allows any origin to call the management API. Browser
// scripts may read the bundle name, checksum and request ID of a download.
func DefaultCORSConfig() cors.Config {
	return cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Accept", "Content-Type", "Content-Length", "If-None-Match", RequestIDHeader},
		ExposeHeaders: []string{
			"Content-Disposition",
			"Content-Length",
			"ETag",
			RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
}

// CORS wraps gin-contrib/cors.
func CORS(cfg cors.Config) gin.HandlerFunc {
	return cors.New(cfg)
}
