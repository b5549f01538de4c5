package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/services"
)

type ProjectsHandler struct {
	projects *services.ProjectService
}

func NewProjectsHandler(projects *services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{
		projects: projects,
	}
}

// ListProjects godoc
// @Summary     List projects
// @Description Returns every project with its scenes, images and videos, most recently updated first
// @Tags        projects
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {array}  models.Project
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /projects [get]
func (h *ProjectsHandler) ListProjects(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context())
	if err != nil {
		respondError(c, "Error getting projects", err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// GetProject godoc
// @Summary     Get project
// @Description Returns the project with its scenes in index order
// @Tags        projects
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id  path     string true "Project ID"
// @Success     200 {object} models.ProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /project/{id} [get]
func (h *ProjectsHandler) GetProject(c *gin.Context) {
	project, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Error getting project", err)
		return
	}
	c.JSON(http.StatusOK, models.ProjectResponse{
		Message: "Project retrieved successfully",
		Project: project,
	})
}

// CreateProject godoc
// @Summary     Create project
// @Description Creates a project with its scenes. Every scene starts pending with one placeholder video.
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body     models.CreateProjectRequest true "Project"
// @Success     201     {object} models.ProjectResponse
// @Failure     400     {object} models.ErrorResponse
// @Failure     500     {object} models.ErrorResponse
// @Router      /project [post]
func (h *ProjectsHandler) CreateProject(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid body", err)
		return
	}

	project, err := h.projects.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Error creating project", err)
		return
	}
	c.JSON(http.StatusCreated, models.ProjectResponse{
		Message: "Project created successfully",
		Project: project,
	})
}

// UpdateProject godoc
// @Summary     Update project
// @Description Updates the editable project fields: title, description, script, social descriptions and isPublished
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id      path     string                       true "Project ID"
// @Param       request body     models.UpdateProjectRequest  true "Fields to update"
// @Success     200     {object} models.ProjectResponse
// @Failure     400     {object} models.ErrorResponse
// @Failure     404     {object} models.ErrorResponse
// @Router      /project/{id} [put]
func (h *ProjectsHandler) UpdateProject(c *gin.Context) {
	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Missing update data", err)
		return
	}

	project, err := h.projects.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, "Error updating project", err)
		return
	}
	c.JSON(http.StatusOK, models.ProjectResponse{
		Message: "Project updated successfully",
		Project: project,
	})
}

// DeleteProject godoc
// @Summary     Delete project
// @Description Deletes the project with its scenes, images, videos and stored assets
// @Tags        projects
// @Produce     json
// @Security    ApiKeyAuth
// @Param       id  path     string true "Project ID"
// @Success     200 {object} models.DeleteProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /project/{id} [delete]
func (h *ProjectsHandler) DeleteProject(c *gin.Context) {
	id := c.Param("id")
	if err := h.projects.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "Error deleting project", err)
		return
	}
	c.JSON(http.StatusOK, models.DeleteProjectResponse{
		Message:   "Project deleted successfully",
		ProjectID: id,
	})
}
