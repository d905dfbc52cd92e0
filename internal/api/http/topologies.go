package http

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DownloadBundle streams the bundle a topology was loaded from
func (h *Handlers) DownloadBundle(c *gin.Context) {
	dl, err := h.downloader.Open(c.Param("type"), c.Param("version"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer dl.Close()

	etag := `"` + dl.Checksum + `"`
	if dl.Checksum != "" && c.GetHeader("If-None-Match") == etag {
		c.Header("ETag", etag)
		c.Status(http.StatusNotModified)
		return
	}

	headers := map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": dl.Name}),
	}
	if dl.Checksum != "" {
		headers["ETag"] = etag
	}
	c.DataFromReader(http.StatusOK, dl.Size, dl.ContentType, dl, headers)
}
