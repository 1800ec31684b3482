package controllers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/carrental/car-rental-api/utils"
	"github.com/gin-gonic/gin"
)

// GetUploadedImage handles GET /api/v1/uploads/:filename - serves car photos
// stored on local disk
func GetUploadedImage(c *gin.Context) {
	filename := c.Param("filename")

	if !utils.SafeFilename(filename) {
		respondErrorCode(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename")
		return
	}

	contentType := utils.ImageContentType(filename)
	if contentType == "" {
		respondErrorCode(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only PNG and JPEG files are supported")
		return
	}

	filePath := filepath.Join(utils.UploadDir, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		respondErrorCode(c, http.StatusNotFound, "FILE_NOT_FOUND", "Image not found")
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(filePath)
}
