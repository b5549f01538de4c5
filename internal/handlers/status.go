package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-videos-backend/internal/models"
)

type ProjectReader interface {
	Get(ctx context.Context, id string) (*models.Project, error)
}

// StatusHandler serves the lightweight generation summary clients poll
// instead of the full project.
type StatusHandler struct {
	projects ProjectReader
}

func NewStatusHandler(projects ProjectReader) *StatusHandler {
	return &StatusHandler{
		projects: projects,
	}
}

// GetStatus godoc
// @Summary     Generation status
// @Description Returns each scene's image generation status and whether any generation is still in flight
// @Tags        projects
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id  path     string true "Project ID"
// @Success     200 {object} models.StatusResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /project/{id}/status [get]
func (h *StatusHandler) GetStatus(c *gin.Context) {
	project, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Error getting project status", err)
		return
	}
	c.JSON(http.StatusOK, models.NewStatusResponse(project))
}
