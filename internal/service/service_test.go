package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniclens/taste-profile-service/internal/cache"
	"github.com/soniclens/taste-profile-service/internal/cluster"
	"github.com/soniclens/taste-profile-service/internal/domain"
	"github.com/soniclens/taste-profile-service/internal/feature"
	"github.com/soniclens/taste-profile-service/internal/insights"
	"github.com/soniclens/taste-profile-service/internal/recommend"
)

type fakeLibrary struct {
	mu         sync.Mutex
	libraries  map[string][]domain.LibraryTrack
	candidates []domain.Track
	libCalls   int
}

func (f *fakeLibrary) GetUserLibrary(_ context.Context, userID string) ([]domain.LibraryTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.libCalls++
	lib, ok := f.libraries[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return lib, nil
}

func (f *fakeLibrary) GetCandidateTracks(_ context.Context, _ string, limit int) ([]domain.Track, error) {
	if len(f.candidates) > limit {
		return f.candidates[:limit], nil
	}
	return f.candidates, nil
}

func (f *fakeLibrary) GetUserIDsPaginated(_ context.Context, page, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.libraries))
	for id := range f.libraries {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeLibrary) CountUsers(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.libraries), nil
}

type fakePopulation struct {
	mu      sync.Mutex
	vectors map[string]domain.BehavioralFeatureVector
	model   *domain.ClusterModel
	saveErr error
}

func (f *fakePopulation) SaveProfileVector(_ context.Context, userID string, v domain.BehavioralFeatureVector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.vectors == nil {
		f.vectors = make(map[string]domain.BehavioralFeatureVector)
	}
	f.vectors[userID] = v
	return nil
}

func (f *fakePopulation) GetPopulationVectors(_ context.Context) ([]domain.BehavioralFeatureVector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.BehavioralFeatureVector, 0, len(f.vectors))
	for _, v := range f.vectors {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakePopulation) SaveClusterModel(_ context.Context, model *domain.ClusterModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.model = model
	return nil
}

func (f *fakePopulation) LoadClusterModel(_ context.Context) (*domain.ClusterModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.model, nil
}

func testTrack(id string, popularity int, genre string) domain.Track {
	return domain.Track{
		ID: id, Popularity: popularity, Genres: []string{genre}, ReleaseYear: 2020,
		Audio: &domain.AudioAttributes{
			Danceability: 0.6, Energy: 0.6, Valence: 0.5, Tempo: 120,
			Acousticness: 0.3, Instrumentalness: 0.1, Speechiness: 0.05,
		},
	}
}

func testLibrary(n int) []domain.LibraryTrack {
	now := time.Now().UTC()
	genres := []string{"rock", "jazz", "pop"}
	out := make([]domain.LibraryTrack, 0, n)
	for i := 0; i < n; i++ {
		// most recently played first, matching the repository ordering
		played := now.Add(-time.Duration(i*24) * time.Hour)
		out = append(out, domain.LibraryTrack{
			Track:         testTrack(trackID(i), 40+i, genres[i%len(genres)]),
			PlayCount:     1 + i%5,
			FirstPlayedAt: played.Add(-60 * 24 * time.Hour),
			LastPlayedAt:  played,
		})
	}
	return out
}

func trackID(i int) string {
	return "lib-track-" + string(rune('a'+i/26)) + string(rune('a'+i%26))
}

func newTestService(library *fakeLibrary, population *fakePopulation) *Service {
	vocab := feature.NewVocabulary([]string{"rock", "jazz", "pop", "classical"})
	return NewService(
		library,
		population,
		cache.NewProfileCache(cache.NewMemoryStore(), time.Hour, zerolog.Nop()),
		feature.NewAggregator(30*24*time.Hour, vocab),
		recommend.NewEngine(recommend.DefaultWeights(), feature.NewExtractor(vocab, 1950, 10, 2025)),
		insights.NewAnalyzer(0.05),
		cluster.NewStore(),
		Options{ClusterK: 2, MaxFitIterations: 100},
		zerolog.Nop(),
	)
}

func TestGetFeaturesComputesAndCaches(t *testing.T) {
	library := &fakeLibrary{libraries: map[string][]domain.LibraryTrack{"user-001": testLibrary(10)}}
	population := &fakePopulation{}
	svc := newTestService(library, population)

	profile, hit, err := svc.GetFeatures(context.Background(), "user-001", false)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NotNil(t, profile)
	assert.Equal(t, "user-001", profile.UserID)
	assert.Len(t, profile.Tracks, 10)
	require.NotNil(t, profile.Cluster, "an unfitted model still yields the default assignment")
	assert.Equal(t, "Taste Profile Pending", profile.Cluster.Label)

	_, hit, err = svc.GetFeatures(context.Background(), "user-001", false)
	require.NoError(t, err)
	assert.True(t, hit)

	library.mu.Lock()
	calls := library.libCalls
	library.mu.Unlock()
	assert.Equal(t, 1, calls, "a fresh cache entry must not refetch the library")
}

func TestGetFeaturesPersistsPopulationVector(t *testing.T) {
	library := &fakeLibrary{libraries: map[string][]domain.LibraryTrack{"user-001": testLibrary(5)}}
	population := &fakePopulation{}
	svc := newTestService(library, population)

	_, _, err := svc.GetFeatures(context.Background(), "user-001", false)
	require.NoError(t, err)

	population.mu.Lock()
	defer population.mu.Unlock()
	assert.Contains(t, population.vectors, "user-001")
}

func TestGetFeaturesSurvivesSnapshotWriteFailure(t *testing.T) {
	library := &fakeLibrary{libraries: map[string][]domain.LibraryTrack{"user-001": testLibrary(5)}}
	population := &fakePopulation{saveErr: errors.New("db down")}
	svc := newTestService(library, population)

	profile, _, err := svc.GetFeatures(context.Background(), "user-001", false)
	require.NoError(t, err, "the population snapshot write is best-effort")
	assert.NotNil(t, profile)
}

func TestGetFeaturesUnknownUser(t *testing.T) {
	svc := newTestService(&fakeLibrary{libraries: map[string][]domain.LibraryTrack{}}, &fakePopulation{})

	_, _, err := svc.GetFeatures(context.Background(), "ghost", false)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestGetFeaturesEmptyLibraryIsValid(t *testing.T) {
	library := &fakeLibrary{libraries: map[string][]domain.LibraryTrack{"user-001": {}}}
	svc := newTestService(library, &fakePopulation{})

	profile, _, err := svc.GetFeatures(context.Background(), "user-001", false)
	require.NoError(t, err)
	assert.Zero(t, profile.Vector.RepeatRate)
	assert.InDelta(t, 0.5, profile.Vector.PopularityBias, 1e-9)
}

func TestGetRecommendationsExcludesLibrary(t *testing.T) {
	lib := testLibrary(10)
	candidates := []domain.Track{
		lib[0].Track, // already known
		testTrack("cand-1", 55, "jazz"),
		testTrack("cand-2", 70, "classical"),
		testTrack("cand-3", 30, "rock"),
	}
	library := &fakeLibrary{libraries: map[string][]domain.LibraryTrack{"user-001": lib}, candidates: candidates}
	svc := newTestService(library, &fakePopulation{})

	result, err := svc.GetRecommendations(context.Background(), "user-001", 10)
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 3)
	for _, r := range result.Recommendations {
		assert.NotEqual(t, lib[0].Track.ID, r.Track.ID)
	}
}

func TestGetRecommendationsClampsLimit(t *testing.T) {
	candidates := make([]domain.Track, 0, 80)
	for i := 0; i < 80; i++ {
		candidates = append(candidates, testTrack("cand-"+trackID(i), i%100, "jazz"))
	}
	library := &fakeLibrary{libraries: map[string][]domain.LibraryTrack{"user-001": testLibrary(5)}, candidates: candidates}
	svc := newTestService(library, &fakePopulation{})

	result, err := svc.GetRecommendations(context.Background(), "user-001", 500)
	require.NoError(t, err)
	assert.Len(t, result.Recommendations, maxLimit)

	result, err = svc.GetRecommendations(context.Background(), "user-001", 0)
	require.NoError(t, err)
	assert.Len(t, result.Recommendations, defaultLimit)
}

func TestGetRecommendationsEmptyPool(t *testing.T) {
	library := &fakeLibrary{libraries: map[string][]domain.LibraryTrack{"user-001": testLibrary(5)}}
	svc := newTestService(library, &fakePopulation{})

	_, err := svc.GetRecommendations(context.Background(), "user-001", 10)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestGetEvaluationHoldsOutRecentTracks(t *testing.T) {
	lib := testLibrary(20)
	candidates := []domain.Track{
		testTrack("cand-1", 55, "jazz"),
		testTrack("cand-2", 70, "pop"),
	}
	library := &fakeLibrary{libraries: map[string][]domain.LibraryTrack{"user-001": lib}, candidates: candidates}
	svc := newTestService(library, &fakePopulation{})

	result, err := svc.GetEvaluation(context.Background(), "user-001", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, result.K)
	assert.GreaterOrEqual(t, result.PrecisionAtK, 0.0)
	assert.LessOrEqual(t, result.PrecisionAtK, 1.0)
	assert.GreaterOrEqual(t, result.RecallAtK, 0.0)
	assert.LessOrEqual(t, result.RecallAtK, 1.0)
}

func TestGetEvaluationTinyLibrary(t *testing.T) {
	library := &fakeLibrary{libraries: map[string][]domain.LibraryTrack{"user-001": testLibrary(1)}}
	svc := newTestService(library, &fakePopulation{})

	_, err := svc.GetEvaluation(context.Background(), "user-001", 10)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestGetInsights(t *testing.T) {
	library := &fakeLibrary{libraries: map[string][]domain.LibraryTrack{"user-001": testLibrary(10)}}
	svc := newTestService(library, &fakePopulation{})

	result, err := svc.GetInsights(context.Background(), "user-001")
	require.NoError(t, err)
	assert.Greater(t, result.EntropyScore, 0.0)
	assert.NotEmpty(t, result.Mood.Label)
}

func TestRefitClustersSwapsAndPersists(t *testing.T) {
	library := &fakeLibrary{libraries: map[string][]domain.LibraryTrack{}}
	population := &fakePopulation{vectors: map[string]domain.BehavioralFeatureVector{}}
	for i := 0; i < 10; i++ {
		v := domain.BehavioralFeatureVector{
			RepeatRate:     float64(i) / 10,
			PopularityBias: float64(9-i) / 10,
			MeanAudio:      domain.AudioAttributes{Danceability: 0.5, Energy: 0.5, Valence: 0.5, Tempo: 0.5, Acousticness: 0.5, Instrumentalness: 0.5, Speechiness: 0.5},
		}
		population.vectors["user-"+trackID(i)] = v
	}
	svc := newTestService(library, population)

	model, err := svc.RefitClusters(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, model)
	assert.Equal(t, 2, model.K())
	assert.Equal(t, 10, model.PopulationSize)

	population.mu.Lock()
	persisted := population.model
	population.mu.Unlock()
	assert.Same(t, model, persisted)
}

func TestRefitClustersInsufficientPopulation(t *testing.T) {
	svc := newTestService(&fakeLibrary{}, &fakePopulation{})

	_, err := svc.RefitClusters(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestLoadModelRestoresPersistedModel(t *testing.T) {
	population := &fakePopulation{
		model: &domain.ClusterModel{
			Centroids:    [][]float64{make([]float64, domain.BehavioralVectorDim)},
			Labels:       []string{"Restored"},
			Descriptions: []string{""},
		},
	}
	library := &fakeLibrary{libraries: map[string][]domain.LibraryTrack{"user-001": testLibrary(5)}}
	svc := newTestService(library, population)

	require.NoError(t, svc.LoadModel(context.Background()))

	assignment, err := svc.GetCluster(context.Background(), "user-001")
	require.NoError(t, err)
	assert.Equal(t, "Restored", assignment.Label)
}

func TestLoadModelNoPersistedModel(t *testing.T) {
	svc := newTestService(&fakeLibrary{}, &fakePopulation{})
	require.NoError(t, svc.LoadModel(context.Background()))
}

func TestComputeBatchProfiles(t *testing.T) {
	libraries := make(map[string][]domain.LibraryTrack)
	for i := 0; i < 5; i++ {
		libraries["user-"+trackID(i)] = testLibrary(5)
	}
	library := &fakeLibrary{libraries: libraries}
	svc := newTestService(library, &fakePopulation{})

	resp, err := svc.ComputeBatchProfiles(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.TotalUsers)
	assert.Len(t, resp.Results, 5)
	assert.Equal(t, 5, resp.Summary.SuccessCount)
	assert.Zero(t, resp.Summary.FailedCount)
	for _, r := range resp.Results {
		assert.Equal(t, domain.StatusSuccess, r.Status)
	}
}

func TestCategorizeError(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{domain.ErrUserNotFound, "user_not_found"},
		{domain.ErrInsufficientData, "insufficient_data"},
		{domain.ErrModelNotFit, "model_not_fit"},
		{&domain.DimensionMismatchError{Want: 11, Got: 9}, "dimension_mismatch"},
		{errors.New("boom"), "internal_error"},
	}
	for _, tc := range cases {
		code, msg := CategorizeError(tc.err)
		assert.Equal(t, tc.code, code)
		assert.NotEmpty(t, msg)
	}
}
