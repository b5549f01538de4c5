package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-videos-backend/internal/models"
)

// ImageRequester runs a batch image generation request for a project.
type ImageRequester interface {
	RequestImages(ctx context.Context, projectID string, refs []models.SceneGenerationRef) (*models.Project, []string, error)
}

type ImagesHandler struct {
	tracker ImageRequester
}

func NewImagesHandler(tracker ImageRequester) *ImagesHandler {
	return &ImagesHandler{
		tracker: tracker,
	}
}

// GenerateImages godoc
// @Summary     Request scene images
// @Description Submits one image generation job per scene. Scenes fail independently; their errors are listed next to the updated project.
// @Tags        images
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id      path     string                        true "Project ID"
// @Param       request body     models.GenerateImagesRequest  true "Scenes to generate"
// @Success     200     {object} models.GenerateImagesResponse
// @Failure     400     {object} models.ErrorResponse
// @Failure     404     {object} models.ErrorResponse
// @Failure     500     {object} models.ErrorResponse
// @Router      /project/{id}/images [post]
func (h *ImagesHandler) GenerateImages(c *gin.Context) {
	var req models.GenerateImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid body", err)
		return
	}
	if req.Scenes == nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Message: "Missing scenes",
			Error:   "Scenes are required",
		})
		return
	}

	project, errs, err := h.tracker.RequestImages(c.Request.Context(), c.Param("id"), req.Scenes)
	if err != nil {
		respondError(c, "Error creating image/s", err)
		return
	}

	if len(errs) > 0 {
		c.JSON(http.StatusOK, models.GenerateImagesResponse{
			Message: "Image/s creation requested with errors",
			Errors:  errs,
			Project: project,
		})
		return
	}
	c.JSON(http.StatusOK, models.GenerateImagesResponse{
		Message: "Image/s creation requested successfully",
		Project: project,
	})
}
