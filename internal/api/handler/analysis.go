package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mediahub/mediahub/internal/analysis"
	"github.com/mediahub/mediahub/internal/api/middleware"
	"github.com/mediahub/mediahub/internal/api/response"
	"github.com/mediahub/mediahub/internal/store"
	"github.com/mediahub/mediahub/pkg/models"
)

// AnalysisService is the orchestration surface the handlers depend on.
type AnalysisService interface {
	Submit(ctx context.Context, userID uuid.UUID, params analysis.SubmitParams) (*models.AnalysisJob, error)
	Get(ctx context.Context, userID, jobID uuid.UUID) (*models.AnalysisJob, error)
	ListByMedia(ctx context.Context, userID, mediaID uuid.UUID) ([]*models.AnalysisJob, error)
	Delete(ctx context.Context, userID, jobID uuid.UUID) error
	Stats(ctx context.Context, userID uuid.UUID) (*analysis.StatsResult, error)
}

// AnalysisHandler serves the analysis job endpoints.
type AnalysisHandler struct {
	service AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(service AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

type submitRequest struct {
	MediaID      uuid.UUID               `json:"media_id"`
	AnalysisType string                  `json:"analysis_type"`
	Options      *models.AnalysisOptions `json:"options,omitempty"`
}

// Submit handles POST /api/v1/analysis.
func (h *AnalysisHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required", nil)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if req.MediaID == uuid.Nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "media_id is required", nil)
		return
	}
	if req.AnalysisType == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "analysis_type is required", nil)
		return
	}

	job, err := h.service.Submit(r.Context(), userID, analysis.SubmitParams{
		MediaID:      req.MediaID,
		AnalysisType: req.AnalysisType,
		Options:      req.Options,
	})
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrInvalidAnalysisType):
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Unknown analysis type", nil)
		case errors.Is(err, store.ErrNotFound):
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Media file not found", nil)
		default:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit analysis", nil)
		}
		return
	}

	response.Created(w, job)
}

// Get handles GET /api/v1/analysis/{jobID}.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required", nil)
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid job ID", nil)
		return
	}

	job, err := h.service.Get(r.Context(), userID, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Analysis job not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch analysis job", nil)
		return
	}

	response.JSON(w, job)
}

// ListByMedia handles GET /api/v1/media/{mediaID}/analysis.
func (h *AnalysisHandler) ListByMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required", nil)
		return
	}

	mediaID, err := uuid.Parse(chi.URLParam(r, "mediaID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid media ID", nil)
		return
	}

	jobs, err := h.service.ListByMedia(r.Context(), userID, mediaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Media file not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list analysis jobs", nil)
		return
	}

	response.JSON(w, jobs)
}

// Delete handles DELETE /api/v1/analysis/{jobID}.
func (h *AnalysisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required", nil)
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid job ID", nil)
		return
	}

	if err := h.service.Delete(r.Context(), userID, jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Analysis job not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete analysis job", nil)
		return
	}

	response.NoContent(w)
}

// Stats handles GET /api/v1/analysis/stats.
func (h *AnalysisHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required", nil)
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute stats", nil)
		return
	}

	response.JSON(w, stats)
}
