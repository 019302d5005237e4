package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/ChronusArtCenter/cosycoding/internal/model"
	"github.com/ChronusArtCenter/cosycoding/internal/ratelimit"
	"github.com/ChronusArtCenter/cosycoding/internal/repository"
	"github.com/ChronusArtCenter/cosycoding/internal/storage"
)

// AssetResponse represents an asset in API responses.
type AssetResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	URL       string `json:"url"`
	Filename  string `json:"filename"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"createdAt"`
}

// toAssetResponse converts a model.Asset to AssetResponse.
func toAssetResponse(a *model.Asset) *AssetResponse {
	return &AssetResponse{
		ID:        a.ID,
		ProjectID: a.ProjectID,
		URL:       a.URL,
		Filename:  a.Filename,
		Type:      a.Type,
		Size:      a.Size,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

// DeleteAssetRequest is the body of an asset delete request.
type DeleteAssetRequest struct {
	URL string `json:"url" binding:"required"`
}

// AssetHandler handles HTTP requests for asset listing, deletion and upload.
type AssetHandler struct {
	assets        *repository.AssetRepository
	projects      *repository.ProjectRepository
	store         *storage.LocalStore
	uploadLimiter *ratelimit.PerIP
	maxUploadSize int64
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(
	assets *repository.AssetRepository,
	projects *repository.ProjectRepository,
	store *storage.LocalStore,
	uploadLimiter *ratelimit.PerIP,
	maxUploadSize int64,
) *AssetHandler {
	return &AssetHandler{
		assets:        assets,
		projects:      projects,
		store:         store,
		uploadLimiter: uploadLimiter,
		maxUploadSize: maxUploadSize,
	}
}

// List handles GET /api/project/:id/assets - lists a project's assets.
func (h *AssetHandler) List(c *gin.Context) {
	projectID := c.Param("id")

	assets, err := h.assets.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to load assets")
		return
	}

	response := lo.Map(assets, func(a *model.Asset, _ int) *AssetResponse {
		return toAssetResponse(a)
	})
	c.JSON(http.StatusOK, response)
}

// Delete handles DELETE /api/project/:id/assets - removes an asset row and
// its stored file.
func (h *AssetHandler) Delete(c *gin.Context) {
	projectID := c.Param("id")

	var req DeleteAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Asset URL is required")
		return
	}

	if err := h.assets.DeleteByURL(c.Request.Context(), projectID, req.URL); err != nil {
		if errors.Is(err, model.ErrAssetNotFound) {
			sendError(c, http.StatusNotFound, "Asset not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "Failed to delete asset")
		return
	}

	// The row is gone; a missing file on disk is only worth a log line.
	if err := h.store.Remove(req.URL); err != nil {
		log.Printf("Failed to remove stored file for %s: %v", req.URL, err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Upload handles POST /upload/:projectId - accepts a multipart upload,
// stores the file, and records the asset against the project.
func (h *AssetHandler) Upload(c *gin.Context) {
	projectID := c.Param("projectId")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, "No file uploaded or invalid file type")
		return
	}

	if fileHeader.Size > h.maxUploadSize {
		sendError(c, http.StatusBadRequest, "File too large")
		return
	}

	// The project must exist before an asset may attach to it.
	exists, err := h.projects.Exists(c.Request.Context(), projectID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	if !exists {
		sendError(c, http.StatusBadRequest, "Invalid projectId")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer file.Close()

	declaredType := fileHeader.Header.Get("Content-Type")
	stored, err := h.store.Save(file, fileHeader.Filename, declaredType)
	if err != nil {
		if errors.Is(err, model.ErrUnsupportedType) || errors.Is(err, model.ErrTypeMismatch) {
			sendError(c, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Upload error: %v", err)
		sendError(c, http.StatusInternalServerError, "Failed to process upload")
		return
	}

	asset, err := h.assets.Insert(c.Request.Context(), projectID, model.AssetDraft{
		URL:      stored.URL,
		Filename: fileHeader.Filename,
		Type:     stored.Type,
		Size:     stored.Size,
	})
	if err != nil {
		log.Printf("Upload error: %v", err)
		if rmErr := h.store.Remove(stored.URL); rmErr != nil {
			log.Printf("Failed to remove orphaned file %s: %v", stored.URL, rmErr)
		}
		sendError(c, http.StatusInternalServerError, "Failed to process upload")
		return
	}

	c.JSON(http.StatusOK, toAssetResponse(asset))
}

// RegisterRoutes registers the asset routes. The upload endpoint sits behind
// the per-IP rate limiter.
func (h *AssetHandler) RegisterRoutes(root gin.IRouter, api *gin.RouterGroup) {
	api.GET("/project/:id/assets", h.List)
	api.DELETE("/project/:id/assets", h.Delete)
	root.POST("/upload/:projectId", h.uploadLimiter.Middleware(), h.Upload)
}
