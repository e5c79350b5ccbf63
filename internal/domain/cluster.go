package domain

import "time"

type ClusterAssignment struct {
	ClusterID   int     `json:"cluster_id"`
	Distance    float64 `json:"distance"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
}

// ClusterModel is an immutable population-level clustering snapshot. A refit
// builds a new model and swaps it in atomically; centroids are never mutated
// while assignments read them.
type ClusterModel struct {
	Centroids      [][]float64 `json:"centroids"`
	Labels         []string    `json:"labels"`
	Descriptions   []string    `json:"descriptions"`
	FittedAt       time.Time   `json:"fitted_at"`
	PopulationSize int         `json:"population_size"`
	Iterations     int         `json:"iterations"`
}

func (m *ClusterModel) K() int {
	return len(m.Centroids)
}
