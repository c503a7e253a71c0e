// Package middleware provides the HTTP middleware for the ad monitor API.
//
// Middleware stack includes:
//   - CORS: admits extension pages (moz-extension://, chrome-extension://) and localhost
//   - RateLimit: per-IP token bucket with idle client cleanup
//   - RequestLogger: zap request logging
//   - Recovery: panic recovery with a JSON 500
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
