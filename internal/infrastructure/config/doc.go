// Package config provides 12-factor configuration management for bundlehost.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, upload size)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting of uploads
//   - Components: Scan roots, bundle patterns and duplicate policy
//
// REST extensions are configured through dotted properties resolved from the
// environment first and then from the optional YAML file named by
// CONFIG_FILE:
//
//	rest:
//	  extensions:
//	    management:
//	      components:
//	        enable: true
//	        path: /srv/components/
//	      topologies:
//	        bundles:
//	          enable: false
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	props, err := config.LoadProperties(cfg.File)
//	ext := config.NewExtensions(props)
//	if ext.IsExtensionEnabled(config.ExtensionComponents) { ... }
//
// Environment Variables:
//   - PORT, HOST, MAX_UPLOAD_MB
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - COMPONENT_PATHS, COMPONENT_PATTERNS, COMPONENT_POLICY
//   - CONFIG_FILE
package config
