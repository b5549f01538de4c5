package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-videos-backend/internal/models"
)

type AudioCreator interface {
	CreateAudio(ctx context.Context, projectID string, req *models.CreateAudioRequest) (*models.Project, error)
}

type AudioHandler struct {
	audio AudioCreator
}

func NewAudioHandler(audio AudioCreator) *AudioHandler {
	return &AudioHandler{
		audio: audio,
	}
}

// CreateAudio godoc
// @Summary     Narrate script
// @Description Converts the script to speech, stores the mp3 and sets the project's audioUrl
// @Tags        audio
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id      path     string                     true "Project ID"
// @Param       request body     models.CreateAudioRequest  true "Script and voice settings"
// @Success     200     {object} models.ProjectResponse
// @Failure     400     {object} models.ErrorResponse
// @Failure     404     {object} models.ErrorResponse
// @Failure     503     {object} models.ErrorResponse
// @Router      /project/{id}/audio [post]
func (h *AudioHandler) CreateAudio(c *gin.Context) {
	var req models.CreateAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid body", err)
		return
	}

	project, err := h.audio.CreateAudio(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, "Error creating audio", err)
		return
	}
	c.JSON(http.StatusOK, models.ProjectResponse{
		Message: "Audio created successfully",
		Project: project,
	})
}
