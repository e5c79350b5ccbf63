package handler

import "github.com/soniclens/taste-profile-service/internal/domain"

type CacheMeta struct {
	FromCache     bool    `json:"from_cache"`
	CacheAgeHours float64 `json:"cache_age_hours,omitempty"`
	GeneratedAt   string  `json:"generated_at"`
}

type FeaturesResponse struct {
	UserID   string                         `json:"user_id"`
	Summary  domain.ListeningSummary        `json:"summary"`
	Features domain.BehavioralFeatureVector `json:"features"`
	Metadata CacheMeta                      `json:"metadata"`
}

type ClusterResponse struct {
	UserID  string                   `json:"user_id"`
	Cluster domain.ClusterAssignment `json:"cluster"`
}

type RecommendationResponse struct {
	UserID          string                  `json:"user_id"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	Metadata        RecommendationMeta      `json:"metadata"`
}

type RecommendationMeta struct {
	CacheHit    bool   `json:"cache_hit"`
	GeneratedAt string `json:"generated_at"`
	TotalCount  int    `json:"total_count"`
}

type EvaluationResponse struct {
	UserID     string                  `json:"user_id"`
	Evaluation domain.EvaluationResult `json:"evaluation"`
}

type InsightsResponse struct {
	UserID   string                `json:"user_id"`
	Insights domain.InsightsResult `json:"insights"`
}

type RefitResponse struct {
	K              int    `json:"k"`
	PopulationSize int    `json:"population_size"`
	Iterations     int    `json:"iterations"`
	FittedAt       string `json:"fitted_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
