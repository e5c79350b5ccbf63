package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniclens/taste-profile-service/internal/domain"
)

func testVocabulary() *Vocabulary {
	return NewVocabulary([]string{"rock", "jazz", "pop", "classical"})
}

func TestExtractConstantDimensionality(t *testing.T) {
	vocab := testVocabulary()
	ex := NewExtractor(vocab, 1950, 10, 2025)

	tracks := []domain.Track{
		{
			ID: "t1", Popularity: 80, ReleaseYear: 2020, Genres: []string{"rock"},
			Audio: &domain.AudioAttributes{Danceability: 0.5, Energy: 0.9, Valence: 0.4, Tempo: 130, Acousticness: 0.1, Instrumentalness: 0.05, Speechiness: 0.04},
		},
		{ID: "t2", Popularity: 10}, // no audio, no genres, no year
		{ID: "t3", Genres: []string{"vaporwave", "rock"}, ReleaseYear: 1971},
	}

	for _, track := range tracks {
		vec := ex.Extract(track)
		assert.Len(t, vec, ex.Dim(), "track %s", track.ID)
		for i, v := range vec {
			assert.GreaterOrEqual(t, v, 0.0, "track %s dim %d", track.ID, i)
			assert.LessOrEqual(t, v, 1.0, "track %s dim %d", track.ID, i)
		}
	}
}

func TestExtractImputesMissingAudio(t *testing.T) {
	ex := NewExtractor(testVocabulary(), 1950, 10, 2025)

	vec := ex.Extract(domain.Track{ID: "bare"})
	for i := 0; i < 7; i++ {
		assert.InDelta(t, 0.5, vec[i], 1e-9, "audio dim %d should impute the neutral midpoint", i)
	}
}

func TestExtractImputesNegativeAttributes(t *testing.T) {
	ex := NewExtractor(testVocabulary(), 1950, 10, 2025)

	vec := ex.Extract(domain.Track{
		ID:    "partial",
		Audio: &domain.AudioAttributes{Danceability: 0.8, Energy: -1, Valence: -1, Tempo: -1, Acousticness: 0.2, Instrumentalness: -1, Speechiness: -1},
	})
	assert.InDelta(t, 0.8, vec[0], 1e-9)
	assert.InDelta(t, 0.5, vec[1], 1e-9)
	assert.InDelta(t, 0.5, vec[3], 1e-9) // tempo
	assert.InDelta(t, 0.2, vec[4], 1e-9)
}

func TestUnseenGenreMapsToOtherBucket(t *testing.T) {
	vocab := testVocabulary()
	ex := NewExtractor(vocab, 1950, 10, 2025)

	known := ex.Extract(domain.Track{ID: "a", Genres: []string{"rock"}})
	unseen := ex.Extract(domain.Track{ID: "b", Genres: []string{"zydeco"}})

	require.Len(t, unseen, len(known))

	genreStart := 8 // 7 audio + popularity
	otherIdx := genreStart + vocab.Size() - 1
	assert.Equal(t, 1.0, unseen[otherIdx], "unseen genre must land in the other bucket")
	assert.Equal(t, 0.0, known[otherIdx])
}

func TestVocabularyIsSortedAndStable(t *testing.T) {
	v1 := NewVocabulary([]string{"pop", "rock", "jazz"})
	v2 := NewVocabulary([]string{"rock", "jazz", "pop", "pop"})

	assert.Equal(t, v1.Size(), v2.Size())
	for _, g := range []string{"pop", "rock", "jazz"} {
		assert.Equal(t, v1.Index(g), v2.Index(g))
	}
	assert.False(t, v1.Contains("zydeco"))
	assert.Equal(t, v1.Size()-1, v1.Index("zydeco"))
}

func TestEraValueMonotonic(t *testing.T) {
	ex := NewExtractor(testVocabulary(), 1950, 10, 2025)

	prev := -1.0
	for year := 1940; year <= 2030; year += 5 {
		vec := ex.Extract(domain.Track{ID: "t", ReleaseYear: year})
		era := vec[len(vec)-1]
		assert.GreaterOrEqual(t, era, prev, "era bucketing must be monotonic over years (year %d)", year)
		prev = era
	}
}

func TestExtractDeterministic(t *testing.T) {
	ex := NewExtractor(testVocabulary(), 1950, 10, 2025)
	track := domain.Track{
		ID: "t1", Popularity: 64, ReleaseYear: 1999, Genres: []string{"jazz", "pop"},
		Audio: &domain.AudioAttributes{Danceability: 0.6, Energy: 0.4, Valence: 0.7, Tempo: 98, Acousticness: 0.5, Instrumentalness: 0.3, Speechiness: 0.05},
	}

	assert.Equal(t, ex.Extract(track), ex.Extract(track))
}
