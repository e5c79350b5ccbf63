package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// GET /users/{userID}/features
func (h *Handler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid user_id parameter")
		return
	}
	forceRefresh := r.URL.Query().Get("force_refresh") == "true"

	profile, cacheHit, err := h.service.GetFeatures(r.Context(), userID, forceRefresh)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	meta := CacheMeta{
		FromCache:   cacheHit,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if cacheHit {
		meta.CacheAgeHours = time.Since(profile.ComputedAt).Hours()
	}

	writeJSON(w, http.StatusOK, FeaturesResponse{
		UserID:   userID,
		Summary:  profile.Summary,
		Features: profile.Vector,
		Metadata: meta,
	})
}

// GET /users/{userID}/cluster
func (h *Handler) GetCluster(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid user_id parameter")
		return
	}

	assignment, err := h.service.GetCluster(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ClusterResponse{
		UserID:  userID,
		Cluster: assignment,
	})
}

// GET /users/{userID}/insights
func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid user_id parameter")
		return
	}

	result, err := h.service.GetInsights(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InsightsResponse{
		UserID:   userID,
		Insights: result,
	})
}
