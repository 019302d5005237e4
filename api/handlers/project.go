// Package handlers provides HTTP API request handlers.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ChronusArtCenter/cosycoding/internal/model"
	"github.com/ChronusArtCenter/cosycoding/internal/repository"
)

const projectIDLength = 6

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// ProjectHandler handles HTTP requests for project management.
type ProjectHandler struct {
	projects *repository.ProjectRepository
	ttl      time.Duration
}

// NewProjectHandler creates a new ProjectHandler. New and updated projects
// expire ttl after their last save.
func NewProjectHandler(projects *repository.ProjectRepository, ttl time.Duration) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		ttl:      ttl,
	}
}

// Save handles POST /project - creates or updates a project's code.
// A missing ID means a new project; the server generates a short code for it.
func (h *ProjectHandler) Save(c *gin.Context) {
	var req model.SaveProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	projectID := req.ID
	if projectID == "" {
		projectID = model.NewID(projectIDLength)
	}

	project := &model.Project{
		ID:        projectID,
		Code:      req.Code,
		ExpiresAt: time.Now().Add(h.ttl),
	}

	if err := h.projects.Upsert(c.Request.Context(), project); err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to save project")
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": projectID})
}

// Get handles GET /api/project/:id - fetches a project.
// A missing project yields an empty object, which clients treat as "new".
func (h *ProjectHandler) Get(c *gin.Context) {
	projectID := c.Param("id")

	project, err := h.projects.GetByID(c.Request.Context(), projectID)
	if err != nil {
		if errors.Is(err, model.ErrProjectNotFound) {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		sendError(c, http.StatusInternalServerError, "Failed to load project")
		return
	}

	c.JSON(http.StatusOK, project)
}

// RegisterRoutes registers the project routes. Save lives at the root for
// compatibility with the frontend; reads live under /api.
func (h *ProjectHandler) RegisterRoutes(root gin.IRouter, api *gin.RouterGroup) {
	root.POST("/project", h.Save)
	api.GET("/project/:id", h.Get)
}
