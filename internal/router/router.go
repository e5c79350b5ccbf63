package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/soniclens/taste-profile-service/internal/handler"
)

func Setup(h *handler.Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/users/{userID}/features", h.GetFeatures)
	r.Get("/users/{userID}/cluster", h.GetCluster)
	r.Get("/users/{userID}/recommendations", h.GetRecommendations)
	r.Get("/users/{userID}/evaluation", h.GetEvaluation)
	r.Get("/users/{userID}/insights", h.GetInsights)
	r.Get("/profiles/batch", h.ComputeBatchProfiles)
	r.Post("/cluster/refit", h.RefitClusters)
	r.Get("/health", healthCheck)

	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
