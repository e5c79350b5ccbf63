package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/soniclens/taste-profile-service/internal/service"
)

type Handler struct {
	service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// writeServiceError maps pipeline errors to HTTP statuses. Only contract
// violations and unexpected failures become 5xx; thin-data cases stay 4xx so
// the analytical surface degrades visibly but gracefully.
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "Request timed out, please try again")
		return
	}

	code, msg := service.CategorizeError(err)
	status := http.StatusInternalServerError
	switch code {
	case "user_not_found":
		status = http.StatusNotFound
	case "insufficient_data":
		status = http.StatusUnprocessableEntity
	case "model_not_fit":
		status = http.StatusConflict
	}
	writeError(w, status, code, msg)
}
