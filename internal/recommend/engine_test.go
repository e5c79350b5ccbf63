package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniclens/taste-profile-service/internal/domain"
	"github.com/soniclens/taste-profile-service/internal/feature"
)

func newTestEngine(weights Weights) *Engine {
	vocab := feature.NewVocabulary([]string{"rock", "jazz", "pop"})
	return NewEngine(weights, feature.NewExtractor(vocab, 1950, 10, 2025))
}

func testProfile() *domain.UserProfile {
	return &domain.UserProfile{
		UserID: "user-001",
		Tracks: []domain.LibraryTrack{
			{Track: domain.Track{ID: "known-1", Genres: []string{"rock"}}},
			{Track: domain.Track{ID: "known-2", Genres: []string{"rock"}}},
		},
		Vector: domain.BehavioralFeatureVector{
			PopularityBias: 0.6,
			MeanAudio: domain.AudioAttributes{
				Danceability: 0.6, Energy: 0.7, Valence: 0.5, Tempo: 0.6,
				Acousticness: 0.2, Instrumentalness: 0.1, Speechiness: 0.05,
			},
		},
		GenreDistribution: map[string]float64{"rock": 0.8, "jazz": 0.2},
	}
}

func candidate(id string, popularity int, genres []string) domain.Track {
	return domain.Track{
		ID: id, Popularity: popularity, Genres: genres,
		Audio: &domain.AudioAttributes{
			Danceability: 0.5, Energy: 0.6, Valence: 0.5, Tempo: 120,
			Acousticness: 0.3, Instrumentalness: 0.1, Speechiness: 0.05,
		},
	}
}

func TestRecommendExcludesKnownTracks(t *testing.T) {
	engine := newTestEngine(DefaultWeights())

	recs, err := engine.Recommend(Input{
		Profile: testProfile(),
		Candidates: []domain.Track{
			candidate("known-1", 80, []string{"rock"}),
			candidate("fresh-1", 60, []string{"jazz"}),
			candidate("fresh-2", 40, []string{"pop"}),
		},
		Limit: 10,
	})
	require.NoError(t, err)

	for _, r := range recs {
		assert.NotEqual(t, "known-1", r.Track.ID, "library tracks must never be recommended")
	}
	assert.Len(t, recs, 2)
}

func TestRecommendDeduplicatesCandidates(t *testing.T) {
	engine := newTestEngine(DefaultWeights())

	recs, err := engine.Recommend(Input{
		Profile: testProfile(),
		Candidates: []domain.Track{
			candidate("fresh-1", 60, []string{"jazz"}),
			candidate("fresh-1", 60, []string{"jazz"}),
		},
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestRecommendFewerCandidatesThanLimit(t *testing.T) {
	engine := newTestEngine(DefaultWeights())

	recs, err := engine.Recommend(Input{
		Profile: testProfile(),
		Candidates: []domain.Track{
			candidate("a", 10, nil),
			candidate("b", 20, nil),
			candidate("c", 30, nil),
		},
		Limit: 5,
	})
	require.NoError(t, err)
	assert.Len(t, recs, 3, "a short pool is not an error")
}

func TestRecommendEmptyPoolAfterDedup(t *testing.T) {
	engine := newTestEngine(DefaultWeights())

	_, err := engine.Recommend(Input{
		Profile: testProfile(),
		Candidates: []domain.Track{
			candidate("known-1", 80, []string{"rock"}),
			candidate("known-2", 70, []string{"rock"}),
		},
		Limit: 10,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestRecommendNilProfile(t *testing.T) {
	engine := newTestEngine(DefaultWeights())

	_, err := engine.Recommend(Input{Candidates: []domain.Track{candidate("a", 10, nil)}})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestRecommendDeterministic(t *testing.T) {
	engine := newTestEngine(DefaultWeights())
	input := Input{
		Profile: testProfile(),
		Candidates: []domain.Track{
			candidate("c", 50, []string{"jazz"}),
			candidate("a", 50, []string{"jazz"}),
			candidate("b", 70, []string{"pop"}),
			candidate("d", 30, nil),
		},
		Limit: 10,
	}

	first, err := engine.Recommend(input)
	require.NoError(t, err)
	second, err := engine.Recommend(input)
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical inputs must produce identical output")
}

func TestRecommendOrderingAndRanks(t *testing.T) {
	engine := newTestEngine(DefaultWeights())

	// identical audio and genres so the score differs only through popularity
	// affinity; the profile's bias is 0.6, making 60 the best match
	recs, err := engine.Recommend(Input{
		Profile: testProfile(),
		Candidates: []domain.Track{
			candidate("low", 10, []string{"pop"}),
			candidate("mid", 60, []string{"pop"}),
			candidate("high", 95, []string{"pop"}),
		},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "mid", recs[0].Track.ID)
	for i, r := range recs {
		assert.Equal(t, i+1, r.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, recs[i-1].Score, r.Score)
		}
	}
}

func TestRecommendTieBreaksByPopularityThenID(t *testing.T) {
	engine := newTestEngine(Weights{}) // zero weights: every score is 0

	recs, err := engine.Recommend(Input{
		Profile: testProfile(),
		Candidates: []domain.Track{
			candidate("b", 50, nil),
			candidate("a", 50, nil),
			candidate("c", 90, nil),
		},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "c", recs[0].Track.ID)
	assert.Equal(t, "a", recs[1].Track.ID)
	assert.Equal(t, "b", recs[2].Track.ID)
}

func TestRecommendLimitTruncates(t *testing.T) {
	engine := newTestEngine(DefaultWeights())

	candidates := make([]domain.Track, 0, 20)
	for i := 0; i < 20; i++ {
		candidates = append(candidates, candidate(string(rune('a'+i)), i*5, []string{"jazz"}))
	}

	recs, err := engine.Recommend(Input{Profile: testProfile(), Candidates: candidates, Limit: 7})
	require.NoError(t, err)
	assert.Len(t, recs, 7)
	assert.Equal(t, 1, recs[0].Rank)
	assert.Equal(t, 7, recs[6].Rank)
}

func TestRecommendScoresRoundedAndExplained(t *testing.T) {
	engine := newTestEngine(DefaultWeights())

	recs, err := engine.Recommend(Input{
		Profile: testProfile(),
		Candidates: []domain.Track{
			candidate("hit", 85, []string{"rock"}),
			candidate("gem", 15, nil),
		},
		Limit: 10,
	})
	require.NoError(t, err)

	for _, r := range recs {
		assert.InDelta(t, r.Score, float64(int(r.Score*1000+0.5))/1000, 1e-9, "scores round to three decimals")
		assert.NotEmpty(t, r.Explanation)
	}

	byID := map[string]domain.Recommendation{}
	for _, r := range recs {
		byID[r.Track.ID] = r
	}
	assert.Contains(t, byID["hit"].Explanation, "Popular hit")
	assert.Contains(t, byID["hit"].Explanation, "genre match")
	assert.Contains(t, byID["gem"].Explanation, "Hidden gem")
}

func TestRecommendIdenticalTasteScoresFullSimilarity(t *testing.T) {
	engine := newTestEngine(Weights{Similarity: 1})

	profile := &domain.UserProfile{
		UserID: "user-001",
		Vector: domain.BehavioralFeatureVector{
			// mean audio as the aggregator stores it: every component,
			// Tempo included, already on the normalized scale
			MeanAudio: domain.AudioAttributes{
				Danceability: 0.6, Energy: 0.7, Valence: 0.5, Tempo: 0.6,
				Acousticness: 0.2, Instrumentalness: 0.1, Speechiness: 0.05,
			},
		},
	}

	// the twin carries the same audio in catalog units (Tempo in BPM)
	twin := domain.Track{
		ID: "twin", Popularity: 50,
		Audio: &domain.AudioAttributes{
			Danceability: 0.6, Energy: 0.7, Valence: 0.5, Tempo: 120,
			Acousticness: 0.2, Instrumentalness: 0.1, Speechiness: 0.05,
		},
	}
	offbeat := twin
	offbeat.ID = "offbeat"
	offbeat.Audio = &domain.AudioAttributes{
		Danceability: 0.6, Energy: 0.7, Valence: 0.5, Tempo: 40,
		Acousticness: 0.2, Instrumentalness: 0.1, Speechiness: 0.05,
	}

	recs, err := engine.Recommend(Input{
		Profile:    profile,
		Candidates: []domain.Track{offbeat, twin},
		Limit:      2,
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "twin", recs[0].Track.ID)
	assert.InDelta(t, 1.0, recs[0].Score, 1e-9,
		"a candidate matching the user's mean audio must score full similarity")
	assert.Less(t, recs[1].Score, recs[0].Score,
		"a tempo mismatch must lower the cosine")
}

func TestCosineEdgeCases(t *testing.T) {
	assert.Zero(t, cosine([]float64{0, 0}, []float64{1, 1}))
	assert.InDelta(t, 1.0, cosine([]float64{0.3, 0.3}, []float64{0.9, 0.9}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
}

func TestGenreOverlapJaccard(t *testing.T) {
	user := map[string]struct{}{"rock": {}, "jazz": {}}

	assert.InDelta(t, 1.0/3.0, genreOverlap([]string{"rock", "pop"}, user), 1e-9)
	assert.Zero(t, genreOverlap(nil, user))
	assert.Zero(t, genreOverlap([]string{"rock"}, nil))
	assert.InDelta(t, 0.5, genreOverlap([]string{"rock", "rock"}, user), 1e-9)
}
