package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/bundlehost/internal/domain/registry"
	"github.com/GriffinCanCode/bundlehost/internal/domain/transfer"
	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/monitoring"
)

// Version of the service reported by the root endpoint.
const Version = "0.1.0"

// Handlers contains HTTP request handlers
type Handlers struct {
	factory        *registry.Factory
	uploader       *transfer.Uploader
	downloader     *transfer.Downloader
	metrics        *monitoring.Metrics
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewHandlers creates a new handlers instance. uploader and downloader may
// be nil when the matching extension is disabled.
func NewHandlers(
	factory *registry.Factory,
	uploader *transfer.Uploader,
	downloader *transfer.Downloader,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		factory:    factory,
		uploader:   uploader,
		downloader: downloader,
		metrics:    metrics,
		logger:     logger,
	}
}

// WithMaxUploadBytes limits the size of upload requests.
func (h *Handlers) WithMaxUploadBytes(n int64) *Handlers {
	h.maxUploadBytes = n
	return h
}

// Root handles the root endpoint
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "bundlehost",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":     "healthy",
		"components": h.factory.Size(),
		"policy":     h.factory.Policy(),
		"uploads":    h.uploader != nil,
		"downloads":  h.downloader != nil,
	}
	if h.metrics != nil {
		resp["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, resp)
}
