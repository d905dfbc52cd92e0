// Package http provides HTTP handlers and routing for the bundlehost REST API.
//
// Endpoints:
//   - Health: / and /health
//   - Metrics: /metrics
//   - Components: GET /api/v1/components, GET /api/v1/components/:alias
//   - Upload: POST /api/v1/components (multipart field "bundle")
//   - Download: GET /api/v1/topologies/:type/versions/:version/bundle
//
// Upload and download routes exist only when their REST extension is
// enabled ("components" and "topologies.bundles").
//
// Example Usage:
//
//	handlers := http.NewHandlers(factory, uploader, downloader, metrics, logger)
//	http.RegisterRoutes(router, handlers, http.RouteOptions{Extensions: ext})
package http
