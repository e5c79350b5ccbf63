package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/soniclens/taste-profile-service/internal/domain"
)

// SaveProfileVector upserts a user's behavioral vector into the population
// snapshot used for offline clustering fits.
func (r *Repository) SaveProfileVector(ctx context.Context, userID string, vector domain.BehavioralFeatureVector) error {
	payload, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal profile vector: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO profile_vectors (user_id, vector, computed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET vector = $2, computed_at = $3`,
		userID, payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save profile vector for user %s: %w", userID, err)
	}
	return nil
}

// GetPopulationVectors returns every stored behavioral vector, ordered by
// user id for reproducible fits.
func (r *Repository) GetPopulationVectors(ctx context.Context) ([]domain.BehavioralFeatureVector, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT vector FROM profile_vectors ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query population vectors: %w", err)
	}
	defer rows.Close()

	var vectors []domain.BehavioralFeatureVector
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan population vector: %w", err)
		}
		var v domain.BehavioralFeatureVector
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("unmarshal population vector: %w", err)
		}
		vectors = append(vectors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate population vectors: %w", err)
	}
	return vectors, nil
}

// SaveClusterModel persists a fitted model so restarts keep the population
// clustering.
func (r *Repository) SaveClusterModel(ctx context.Context, model *domain.ClusterModel) error {
	payload, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("marshal cluster model: %w", err)
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO cluster_models (model, fitted_at) VALUES ($1, $2)`,
		payload, model.FittedAt,
	); err != nil {
		return fmt.Errorf("save cluster model: %w", err)
	}
	return nil
}

// LoadClusterModel returns the most recently fitted model, or nil when no fit
// has run yet.
func (r *Repository) LoadClusterModel(ctx context.Context) (*domain.ClusterModel, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT model FROM cluster_models ORDER BY fitted_at DESC, id DESC LIMIT 1`,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cluster model: %w", err)
	}

	var model domain.ClusterModel
	if err := json.Unmarshal(payload, &model); err != nil {
		return nil, fmt.Errorf("unmarshal cluster model: %w", err)
	}
	return &model, nil
}
