package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"appispot/middleware"
	"appispot/services/spot"
	"appispot/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadHandler exposes spot image upload.
type UploadHandler struct {
	Spots spot.SpotService
}

// UploadSpotImageHandler handles POST /spots/:id/images. Accepts a multipart
// "file" field; "featured=true" sets the listing's cover image.
func (h *UploadHandler) UploadSpotImageHandler(c *gin.Context) {
	logger := utils.GetLogger()
	spotID := c.Param("id")

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return
	}

	// Stage the upload on disk; the storage backend reads from a path.
	tmpPath := filepath.Join(os.TempDir(), uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		logger.Error("Failed to stage upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}
	defer os.Remove(tmpPath)

	featured := c.DefaultQuery("featured", "false") == "true"
	url, err := h.Spots.UploadImage(c.Request.Context(), middleware.CallerID(c), spotID, tmpPath, featured)
	if err != nil {
		logger.Error("Image upload failed", zap.String("spotId", spotID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
