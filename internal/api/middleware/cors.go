package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig defines CORS configuration options
type CORSConfig struct {
	// AllowOriginPrefixes admits any origin starting with one of these
	AllowOriginPrefixes []string
	AllowMethods        []string
	AllowHeaders        []string
	MaxAge              time.Duration
}

// DefaultCORSConfig admits extension pages and local tools
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOriginPrefixes: []string{
			"moz-extension://",
			"chrome-extension://",
			"http://localhost",
			"http://127.0.0.1",
		},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Content-Encoding",
			"Accept",
			"Origin",
		},
		MaxAge: 12 * time.Hour,
	}
}

// CORS creates a CORS middleware with the provided configuration
func CORS(cfg CORSConfig) gin.HandlerFunc {
	prefixes := cfg.AllowOriginPrefixes
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			for _, p := range prefixes {
				if strings.HasPrefix(origin, p) {
					return true
				}
			}
			return false
		},
		AllowMethods: cfg.AllowMethods,
		AllowHeaders: cfg.AllowHeaders,
		MaxAge:       cfg.MaxAge,
	})
}
