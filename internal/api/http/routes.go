package http

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/config"
)

// APIPrefix is the base path of the management API.
const APIPrefix = "/api/v1"

// RouteOptions control which routes are registered.
type RouteOptions struct {
	Extensions *config.Extensions
	// UploadMiddleware runs before the upload handler only.
	UploadMiddleware []gin.HandlerFunc
}

// RegisterRoutes wires the handlers into router.
func RegisterRoutes(router *gin.Engine, h *Handlers, opts RouteOptions) {
	ext := opts.Extensions
	if ext == nil {
		ext = config.NewExtensions(nil)
	}

	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	v1 := router.Group(APIPrefix)
	v1.GET("/components", h.ListComponents)
	v1.GET("/components/:alias", h.ComponentVersions)

	if h.uploader != nil && ext.IsExtensionEnabled(config.ExtensionComponents) {
		upload := append([]gin.HandlerFunc{}, opts.UploadMiddleware...)
		v1.POST("/components", append(upload, h.UploadComponent)...)
	}
	if h.downloader != nil && ext.IsExtensionEnabled(config.ExtensionTopologyBundles) {
		v1.GET("/topologies/:type/versions/:version/bundle", h.DownloadBundle)
	}
}
