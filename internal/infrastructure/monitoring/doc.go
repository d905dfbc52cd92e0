/*
Package monitoring provides metrics collection.

# Overview

Prometheus metrics for the bundle host: HTTP traffic, registry size, bundle
loads, component instantiations, uploads and downloads. Every Metrics value
owns a private prometheus.Registry.

# Usage

	metrics := monitoring.NewMetrics()

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	metrics.SetComponents(factory.Size())
	metrics.RecordBundleLoad(monitoring.StatusSuccess, elapsed)

	timer := monitoring.NewTimer(metrics, "upload")
	// ... perform operation ...
	timer.Stop(monitoring.StatusSuccess)

The Record and Set helpers are no-ops on a nil *Metrics, so domain types can
take metrics as an optional dependency.
*/
package monitoring
