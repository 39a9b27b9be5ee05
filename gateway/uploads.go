package gateway

import (
	"errors"
	"io"
	"net/http"

	"github.com/example/foodshop/pkg/upload"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// uploadImage answers with a bare {url} or {error}, the shape admin image pickers expect.
func (g *Gateway) uploadImage(c *gin.Context) {
	maxSize := g.deps.Uploader.MaxSize()

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": upload.Message(upload.ErrNoFile, maxSize)})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": upload.Message(upload.ErrNoFile, maxSize)})
		return
	}
	defer file.Close()

	url, err := g.deps.Uploader.Upload(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"url": url})
	case errors.Is(err, upload.ErrNoFile), errors.Is(err, upload.ErrInvalidType):
		c.JSON(http.StatusBadRequest, gin.H{"error": upload.Message(err, maxSize)})
	case errors.Is(err, upload.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": upload.Message(err, maxSize)})
	default:
		g.logger.Error("Upload failed", zap.String("filename", header.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": upload.Message(err, maxSize)})
	}
}

func (g *Gateway) getImage(c *gin.Context) {
	rc, contentType, err := g.deps.Images.Open(c.Request.Context(), c.Param("id"))
	if errors.Is(err, upload.ErrNotFound) {
		reject(c, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		g.logger.Error("Failed to open image", zap.String("id", c.Param("id")), zap.Error(err))
		reject(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer rc.Close()

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		g.logger.Warn("Image stream interrupted", zap.String("id", c.Param("id")), zap.Error(err))
	}
}
