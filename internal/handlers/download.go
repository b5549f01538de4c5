package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-videos-backend/internal/models"
)

type ZipCreator interface {
	CreateZip(ctx context.Context, projectID string) (string, error)
}

type DownloadHandler struct {
	downloads ZipCreator
}

func NewDownloadHandler(downloads ZipCreator) *DownloadHandler {
	return &DownloadHandler{
		downloads: downloads,
	}
}

// Download godoc
// @Summary     Download project assets
// @Description Packages the narration and every scene image into a zip and returns its URL
// @Tags        download
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id  path     string true "Project ID"
// @Success     200 {object} models.DownloadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     503 {object} models.ErrorResponse
// @Router      /project/{id}/download [get]
func (h *DownloadHandler) Download(c *gin.Context) {
	zipURL, err := h.downloads.CreateZip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Error downloading project assets", err)
		return
	}
	c.JSON(http.StatusOK, models.DownloadResponse{
		Message: "Project assets downloaded successfully",
		ZipURL:  zipURL,
	})
}
