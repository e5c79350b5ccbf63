package handler

import (
	"net/http"
	"strconv"
	"time"
)

// GET /profiles/batch
func (h *Handler) ComputeBatchProfiles(w http.ResponseWriter, r *http.Request) {
	// Parse and validate page
	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 || parsed > 10000 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid page parameter")
			return
		}
		page = parsed
	}

	// Parse and validate limit
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 100 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	result, err := h.service.ComputeBatchProfiles(r.Context(), page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /cluster/refit
func (h *Handler) RefitClusters(w http.ResponseWriter, r *http.Request) {
	k := 0
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil || parsed < 1 || parsed > 20 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid k parameter")
			return
		}
		k = parsed
	}

	model, err := h.service.RefitClusters(r.Context(), k)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RefitResponse{
		K:              model.K(),
		PopulationSize: model.PopulationSize,
		Iterations:     model.Iterations,
		FittedAt:       model.FittedAt.UTC().Format(time.RFC3339),
	})
}
