package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/bundlehost/internal/domain/component"
	"github.com/GriffinCanCode/bundlehost/internal/domain/transfer"
)

// FormField is the multipart field carrying the uploaded bundle.
const FormField = "bundle"

// ComponentView is the JSON representation of a descriptor.
type ComponentView struct {
	Name         string            `json:"name"`
	Aliases      []string          `json:"aliases"`
	Version      string            `json:"version"`
	Scope        component.Scope   `json:"scope"`
	Tags         map[string]string `json:"tags,omitempty"`
	Type         string            `json:"type"`
	Module       string            `json:"module"`
	External     bool              `json:"external"`
	Bundle       string            `json:"bundle,omitempty"`
	Checksum     string            `json:"checksum,omitempty"`
	Downloadable bool              `json:"downloadable"`
}

func newComponentView(d *component.Descriptor) ComponentView {
	v := ComponentView{
		Name:     d.Name(),
		Aliases:  d.Aliases(),
		Version:  d.Version(),
		Scope:    d.Scope(),
		Tags:     d.Tags(),
		Type:     d.Type().SimpleName(),
		Module:   d.Handle().ID(),
		External: d.External(),
		Checksum: d.Checksum(),
	}
	if d.Origin() != "" {
		v.Bundle = filepath.Base(d.Origin())
	}
	v.Downloadable = v.External && d.Type().Satisfies(component.TopologyProvider)
	return v
}

// ListComponents lists every registered component
func (h *Handlers) ListComponents(c *gin.Context) {
	descriptors := h.factory.Descriptors()
	views := make([]ComponentView, 0, len(descriptors))
	for _, d := range descriptors {
		views = append(views, newComponentView(d))
	}

	c.JSON(http.StatusOK, gin.H{
		"components": views,
		"count":      len(views),
	})
}

// ComponentVersions lists the versions registered under an alias, highest first
func (h *Handlers) ComponentVersions(c *gin.Context) {
	alias := c.Param("alias")

	descriptors := h.factory.FindAllDescriptorsByAlias(alias)
	if len(descriptors) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "component not found: " + alias})
		return
	}

	slices.SortStableFunc(descriptors, func(a, b *component.Descriptor) int {
		return component.CompareVersions(b.Version(), a.Version())
	})

	views := make([]ComponentView, 0, len(descriptors))
	for _, d := range descriptors {
		views = append(views, newComponentView(d))
	}
	c.JSON(http.StatusOK, gin.H{
		"alias":    alias,
		"versions": views,
	})
}

// UploadComponent stores an uploaded bundle and registers its components
func (h *Handlers) UploadComponent(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		if c.Request.ContentLength > h.maxUploadBytes {
			h.writeError(c, fmt.Errorf("%w: request body exceeds %d bytes", transfer.ErrTooLarge, h.maxUploadBytes))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fh, err := c.FormFile(FormField)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart field '" + FormField + "'"})
		return
	}

	src, err := fh.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer src.Close()

	result, err := h.uploader.Upload(c.Request.Context(), fh.Filename, src)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Info("Components uploaded",
		zap.String("file", fh.Filename),
		zap.String("path", result.Path),
		zap.Int("registered", len(result.Registered)))
	c.Status(http.StatusNoContent)
}
