package cluster

import (
	"sync/atomic"

	"github.com/soniclens/taste-profile-service/internal/domain"
)

// Assign finds the nearest centroid for a behavioral vector. A nil model
// yields ErrModelNotFit; a centroid of unexpected width is a fatal upstream
// contract violation and surfaces as DimensionMismatchError.
func Assign(model *domain.ClusterModel, vector domain.BehavioralFeatureVector) (domain.ClusterAssignment, error) {
	if model == nil || model.K() == 0 {
		return domain.ClusterAssignment{}, domain.ErrModelNotFit
	}
	values := vector.Values()
	for _, c := range model.Centroids {
		if len(c) != len(values) {
			return domain.ClusterAssignment{}, &domain.DimensionMismatchError{Want: len(values), Got: len(c)}
		}
	}

	id, dist := nearestCentroid(model.Centroids, values)
	return domain.ClusterAssignment{
		ClusterID:   id,
		Distance:    dist,
		Label:       model.Labels[id],
		Description: model.Descriptions[id],
	}, nil
}

// DefaultAssignment is the graceful fallback used before any model has been
// fitted; end users never see ErrModelNotFit.
func DefaultAssignment() domain.ClusterAssignment {
	return domain.ClusterAssignment{
		ClusterID:   0,
		Distance:    0,
		Label:       "Taste Profile Pending",
		Description: "Not enough population data yet to place you in a taste cluster.",
	}
}

// Store holds the process-wide cluster model. Reads take no lock; a refit
// swaps in a complete replacement so in-flight assignments never observe a
// partially updated model.
type Store struct {
	model atomic.Pointer[domain.ClusterModel]
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the active model or ErrModelNotFit when none exists.
func (s *Store) Current() (*domain.ClusterModel, error) {
	m := s.model.Load()
	if m == nil {
		return nil, domain.ErrModelNotFit
	}
	return m, nil
}

func (s *Store) Swap(model *domain.ClusterModel) {
	s.model.Store(model)
}
