package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/soniclens/taste-profile-service/internal/cache"
	"github.com/soniclens/taste-profile-service/internal/cluster"
	"github.com/soniclens/taste-profile-service/internal/domain"
	"github.com/soniclens/taste-profile-service/internal/evaluate"
	"github.com/soniclens/taste-profile-service/internal/feature"
	"github.com/soniclens/taste-profile-service/internal/insights"
	"github.com/soniclens/taste-profile-service/internal/recommend"
)

const (
	defaultLimit      = 10
	maxLimit          = 50
	candidatePoolSize = 100
	batchConcurrency  = 10
	defaultEvalK      = 10

	// holdoutFraction of the most recently played tracks is held out as
	// ground truth when evaluating recommendation quality.
	holdoutFraction = 0.2
)

// LibraryProvider is the catalog adapter boundary: it supplies a user's
// annotated library and the recommendation candidate pool.
type LibraryProvider interface {
	GetUserLibrary(ctx context.Context, userID string) ([]domain.LibraryTrack, error)
	GetCandidateTracks(ctx context.Context, userID string, limit int) ([]domain.Track, error)
	GetUserIDsPaginated(ctx context.Context, page, limit int) ([]string, error)
	CountUsers(ctx context.Context) (int, error)
}

// PopulationStore persists per-user behavioral vectors and fitted cluster
// models for offline refits.
type PopulationStore interface {
	SaveProfileVector(ctx context.Context, userID string, vector domain.BehavioralFeatureVector) error
	GetPopulationVectors(ctx context.Context) ([]domain.BehavioralFeatureVector, error)
	SaveClusterModel(ctx context.Context, model *domain.ClusterModel) error
	LoadClusterModel(ctx context.Context) (*domain.ClusterModel, error)
}

type Options struct {
	ClusterK         int
	MaxFitIterations int
}

type Service struct {
	library    LibraryProvider
	population PopulationStore
	cache      *cache.ProfileCache
	aggregator *feature.Aggregator
	engine     *recommend.Engine
	analyzer   *insights.Analyzer
	models     *cluster.Store
	opts       Options
	logger     zerolog.Logger
}

func NewService(
	library LibraryProvider,
	population PopulationStore,
	profileCache *cache.ProfileCache,
	aggregator *feature.Aggregator,
	engine *recommend.Engine,
	analyzer *insights.Analyzer,
	models *cluster.Store,
	opts Options,
	logger zerolog.Logger,
) *Service {
	return &Service{
		library:    library,
		population: population,
		cache:      profileCache,
		aggregator: aggregator,
		engine:     engine,
		analyzer:   analyzer,
		models:     models,
		opts:       opts,
		logger:     logger.With().Str("component", "service").Logger(),
	}
}

// LoadModel restores the persisted cluster model at startup, if any.
func (s *Service) LoadModel(ctx context.Context) error {
	model, err := s.population.LoadClusterModel(ctx)
	if err != nil {
		return err
	}
	if model != nil {
		s.models.Swap(model)
		s.logger.Info().Int("k", model.K()).Time("fitted_at", model.FittedAt).Msg("cluster model restored")
	}
	return nil
}

// GetFeatures returns the user's profile, computing and caching it when the
// cached copy is stale or a refresh is forced.
func (s *Service) GetFeatures(ctx context.Context, userID string, forceRefresh bool) (*domain.UserProfile, bool, error) {
	return s.cache.GetOrCompute(ctx, userID, func(ctx context.Context) (*domain.UserProfile, error) {
		return s.computeProfile(ctx, userID)
	}, forceRefresh)
}

func (s *Service) computeProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	library, err := s.library.GetUserLibrary(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch library: %w", err)
	}
	return s.buildProfile(ctx, userID, library, true)
}

// buildProfile aggregates the library into a profile. Once the vector exists,
// the cluster assignment and the population snapshot write are independent
// read-only consumers and run concurrently.
func (s *Service) buildProfile(ctx context.Context, userID string, library []domain.LibraryTrack, persistVector bool) (*domain.UserProfile, error) {
	now := time.Now().UTC()
	vector := s.aggregator.Aggregate(library, now)
	dist := feature.GenreDistribution(library)

	profile := &domain.UserProfile{
		UserID:            userID,
		Tracks:            library,
		Vector:            vector,
		Summary:           feature.BuildSummary(vector, library, dist, now.Year()),
		GenreDistribution: dist,
		ComputedAt:        now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		assignment, err := s.assign(vector)
		if err != nil {
			return err
		}
		profile.Cluster = &assignment
		return nil
	})
	if persistVector {
		g.Go(func() error {
			if err := s.population.SaveProfileVector(gctx, userID, vector); err != nil {
				// the snapshot write is best-effort; the profile is still valid
				s.logger.Warn().Err(err).Str("user_id", userID).Msg("population vector save failed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return profile, nil
}

// assign falls back to the default cluster before any fit; only a dimension
// mismatch propagates.
func (s *Service) assign(vector domain.BehavioralFeatureVector) (domain.ClusterAssignment, error) {
	model, err := s.models.Current()
	if err != nil {
		return cluster.DefaultAssignment(), nil
	}
	assignment, err := cluster.Assign(model, vector)
	if err != nil {
		if errors.Is(err, domain.ErrModelNotFit) {
			return cluster.DefaultAssignment(), nil
		}
		return domain.ClusterAssignment{}, err
	}
	return assignment, nil
}

// GetCluster returns the user's taste-cluster assignment.
func (s *Service) GetCluster(ctx context.Context, userID string) (domain.ClusterAssignment, error) {
	profile, _, err := s.GetFeatures(ctx, userID, false)
	if err != nil {
		return domain.ClusterAssignment{}, err
	}
	if profile.Cluster != nil {
		return *profile.Cluster, nil
	}
	return s.assign(profile.Vector)
}

// GetRecommendations scores the unseen candidate pool against the profile.
func (s *Service) GetRecommendations(ctx context.Context, userID string, limit int) (*domain.RecommendationResult, error) {
	if limit <= 0 {
		limit = defaultLimit
	} else if limit > maxLimit {
		limit = maxLimit
	}

	profile, cacheHit, err := s.GetFeatures(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	candidates, err := s.library.GetCandidateTracks(ctx, userID, candidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	recs, err := s.engine.Recommend(recommend.Input{
		Profile:    profile,
		Candidates: candidates,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	return &domain.RecommendationResult{
		Recommendations: recs,
		CacheHit:        cacheHit,
	}, nil
}

// GetEvaluation measures recommendation quality offline: the most recently
// played fraction of the library is held out as ground truth, a profile is
// rebuilt from the remainder, and the holdout is folded back into the
// candidate pool before scoring.
func (s *Service) GetEvaluation(ctx context.Context, userID string, k int) (domain.EvaluationResult, error) {
	if k <= 0 {
		k = defaultEvalK
	} else if k > maxLimit {
		k = maxLimit
	}

	library, err := s.library.GetUserLibrary(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.EvaluationResult{}, err
		}
		return domain.EvaluationResult{}, fmt.Errorf("fetch library: %w", err)
	}
	if len(library) < 2 {
		return domain.EvaluationResult{}, fmt.Errorf("library too small to hold out ground truth: %w", domain.ErrInsufficientData)
	}

	// library is ordered most recently played first
	holdoutSize := int(float64(len(library)) * holdoutFraction)
	if holdoutSize < 1 {
		holdoutSize = 1
	}
	holdout, training := library[:holdoutSize], library[holdoutSize:]

	profile, err := s.buildProfile(ctx, userID, training, false)
	if err != nil {
		return domain.EvaluationResult{}, err
	}

	candidates, err := s.library.GetCandidateTracks(ctx, userID, candidatePoolSize)
	if err != nil {
		return domain.EvaluationResult{}, fmt.Errorf("fetch candidates: %w", err)
	}
	truth := make([]string, 0, len(holdout))
	for _, t := range holdout {
		candidates = append(candidates, t.Track)
		truth = append(truth, t.Track.ID)
	}

	recs, err := s.engine.Recommend(recommend.Input{
		Profile:    profile,
		Candidates: candidates,
		Limit:      k,
	})
	if err != nil {
		return domain.EvaluationResult{}, err
	}
	return evaluate.Evaluate(recs, truth, k), nil
}

// GetInsights derives mood, entropy, uniqueness and genre evolution for the
// user against the population baseline.
func (s *Service) GetInsights(ctx context.Context, userID string) (domain.InsightsResult, error) {
	profile, _, err := s.GetFeatures(ctx, userID, false)
	if err != nil {
		return domain.InsightsResult{}, err
	}
	return s.analyzer.Analyze(profile, s.populationCentroid(ctx)), nil
}

// populationCentroid is the mean stored behavioral vector; with no snapshot
// yet it falls back to the active model's centroid mean, then to nil.
func (s *Service) populationCentroid(ctx context.Context) []float64 {
	vectors, err := s.population.GetPopulationVectors(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("population vectors unavailable")
	}
	if len(vectors) > 0 {
		centroid := make([]float64, domain.BehavioralVectorDim)
		for _, v := range vectors {
			for i, val := range v.Values() {
				centroid[i] += val
			}
		}
		for i := range centroid {
			centroid[i] /= float64(len(vectors))
		}
		return centroid
	}

	model, err := s.models.Current()
	if err != nil {
		return nil
	}
	centroid := make([]float64, len(model.Centroids[0]))
	for _, c := range model.Centroids {
		for i, val := range c {
			centroid[i] += val
		}
	}
	for i := range centroid {
		centroid[i] /= float64(model.K())
	}
	return centroid
}

// RefitClusters fits a fresh population model and swaps it in atomically.
// In-flight assignments keep reading the previous snapshot.
func (s *Service) RefitClusters(ctx context.Context, k int) (*domain.ClusterModel, error) {
	if k <= 0 {
		k = s.opts.ClusterK
	}

	population, err := s.population.GetPopulationVectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch population: %w", err)
	}

	model, err := cluster.Fit(ctx, population, cluster.FitOptions{
		K:             k,
		MaxIterations: s.opts.MaxFitIterations,
	})
	if err != nil {
		return nil, err
	}

	s.models.Swap(model)
	if err := s.population.SaveClusterModel(ctx, model); err != nil {
		s.logger.Warn().Err(err).Msg("cluster model persistence failed")
	}
	s.logger.Info().
		Int("k", model.K()).
		Int("population", model.PopulationSize).
		Int("iterations", model.Iterations).
		Msg("cluster model refitted")
	return model, nil
}

// ComputeBatchProfiles recomputes profiles for a page of users with a bounded
// worker pool, refreshing the population snapshot used by offline fits.
func (s *Service) ComputeBatchProfiles(ctx context.Context, page, limit int) (*domain.BatchResponse, error) {
	start := time.Now()

	userIDs, err := s.library.GetUserIDsPaginated(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch user ids: %w", err)
	}
	totalUsers, err := s.library.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	results := make([]domain.BatchUserResult, len(userIDs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, batchConcurrency) // semaphore

	for i, userID := range userIDs {
		wg.Add(1)
		go func(idx int, uid string) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			results[idx] = s.processUserForBatch(ctx, uid)
		}(i, userID)
	}
	wg.Wait()

	successCount, failedCount := 0, 0
	for _, r := range results {
		if r.Status == domain.StatusSuccess {
			successCount++
		} else {
			failedCount++
		}
	}

	return &domain.BatchResponse{
		Page:       page,
		Limit:      limit,
		TotalUsers: totalUsers,
		Results:    results,
		Summary: domain.BatchSummary{
			SuccessCount:     successCount,
			FailedCount:      failedCount,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
		Metadata: domain.BatchMeta{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

func (s *Service) processUserForBatch(ctx context.Context, userID string) domain.BatchUserResult {
	if _, _, err := s.GetFeatures(ctx, userID, true); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("batch profile failed")
		code, msg := CategorizeError(err)
		return domain.BatchUserResult{
			UserID:  userID,
			Status:  domain.StatusFailed,
			Error:   code,
			Message: msg,
		}
	}
	return domain.BatchUserResult{
		UserID: userID,
		Status: domain.StatusSuccess,
	}
}

// CategorizeError maps pipeline failures onto stable API error codes.
func CategorizeError(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found", "user not found"
	case errors.Is(err, domain.ErrInsufficientData):
		return "insufficient_data", "not enough listening data to compute this result"
	case errors.Is(err, domain.ErrModelNotFit):
		return "model_not_fit", "population clustering model has not been fitted yet"
	case domain.IsDimensionMismatch(err):
		return "dimension_mismatch", "feature vector dimensionality contract violated"
	default:
		return "internal_error", "an unexpected error occurred"
	}
}
