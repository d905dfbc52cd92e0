// Package middleware provides HTTP middleware for the bundlehost API.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing, exposing download headers
//   - RateLimit: Per-IP token bucket rate limiting with idle eviction
//   - RequestID: X-Request-ID propagation
//   - Logger: Structured request logging via zap
//
// Example Usage:
//
//	router.Use(middleware.RequestID(), middleware.Logger(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	uploads.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
