// Package main is the entry point for the bundlehost server.
//
// bundlehost keeps a registry of component types loaded from bundle
// archives. On startup it registers the built-in components, scans the
// configured component directories and previously uploaded bundles, and then
// serves the management API.
//
// The server provides:
//   - Component listing by alias and version
//   - Bundle upload with immediate registration
//   - Topology bundle download
//   - Prometheus metrics and health checks
//
// Configuration:
//   - Environment variables (PORT, LOG_LEVEL, COMPONENT_PATHS, ...)
//   - CLI flags (override env vars)
//   - Optional YAML properties file for REST extensions (CONFIG_FILE)
//
// Usage:
//
//	./server -port 8000 -paths /opt/components,/srv/bundles
//
//	# Development mode (console logs)
//	./server -dev -log-level debug
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
