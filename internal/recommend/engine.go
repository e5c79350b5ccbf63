package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/soniclens/taste-profile-service/internal/domain"
	"github.com/soniclens/taste-profile-service/internal/feature"
)

// Weights tune the scoring components. They are configuration, not constants:
// similarity is cosine similarity between the candidate's audio attributes and
// the user's mean audio vector, popularity is affinity between the candidate's
// popularity and the user's popularity bias, diversity is the penalty applied
// to candidates from genres already dominant in the profile.
type Weights struct {
	Similarity float64
	Popularity float64
	Diversity  float64
}

func DefaultWeights() Weights {
	return Weights{Similarity: 0.60, Popularity: 0.25, Diversity: 0.15}
}

type Engine struct {
	weights   Weights
	extractor *feature.Extractor
}

func NewEngine(weights Weights, extractor *feature.Extractor) *Engine {
	return &Engine{weights: weights, extractor: extractor}
}

type Input struct {
	Profile    *domain.UserProfile
	Candidates []domain.Track
	Limit      int
}

// Recommend scores and ranks the candidate pool against the user's taste
// profile. Tracks already in the user's library are excluded; ties break by
// candidate popularity descending, then track ID ascending, so identical
// inputs always produce identical ordered output. Fewer candidates than the
// limit is not an error; an empty pool after dedup is.
func (e *Engine) Recommend(input Input) ([]domain.Recommendation, error) {
	if input.Profile == nil {
		return nil, fmt.Errorf("recommend: %w", domain.ErrInsufficientData)
	}

	known := make(map[string]struct{}, len(input.Profile.Tracks))
	for _, t := range input.Profile.Tracks {
		known[t.Track.ID] = struct{}{}
	}

	pool := make([]domain.Track, 0, len(input.Candidates))
	seen := make(map[string]struct{}, len(input.Candidates))
	for _, c := range input.Candidates {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		if _, ok := known[c.ID]; ok {
			continue
		}
		pool = append(pool, c)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("no unseen candidates: %w", domain.ErrInsufficientData)
	}

	// the mean audio components are already normalized, Tempo included
	userAudio := input.Profile.Vector.AudioValues()
	userGenres := topGenreSet(input.Profile.GenreDistribution)

	recs := make([]domain.Recommendation, 0, len(pool))
	for _, c := range pool {
		score := e.score(c, userAudio, input.Profile)
		recs = append(recs, domain.Recommendation{
			Track:       c,
			Score:       math.Round(score*1000) / 1000,
			Explanation: explain(c, userGenres),
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		if recs[i].Track.Popularity != recs[j].Track.Popularity {
			return recs[i].Track.Popularity > recs[j].Track.Popularity
		}
		return recs[i].Track.ID < recs[j].Track.ID
	})

	if input.Limit > 0 && len(recs) > input.Limit {
		recs = recs[:input.Limit]
	}
	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs, nil
}

func (e *Engine) score(c domain.Track, userAudio []float64, profile *domain.UserProfile) float64 {
	vec := e.extractor.Extract(c)
	similarity := cosine(vec[:feature.AudioDim], userAudio)

	popAffinity := 1 - math.Abs(vec[feature.AudioDim]-profile.Vector.PopularityBias)

	// Penalize by the heaviest genre share the candidate overlaps, so a list
	// cannot collapse onto the user's single dominant genre.
	penalty := 0.0
	for _, g := range c.Genres {
		if share := profile.GenreDistribution[g]; share > penalty {
			penalty = share
		}
	}

	return e.weights.Similarity*similarity +
		e.weights.Popularity*popAffinity -
		e.weights.Diversity*penalty
}

func explain(c domain.Track, userGenres map[string]struct{}) string {
	overlap := genreOverlap(c.Genres, userGenres)

	var parts []string
	if overlap > 0 {
		parts = append(parts, fmt.Sprintf("%d%% genre match", int(overlap*100)))
	}
	switch {
	case c.Popularity >= 70:
		parts = append(parts, "Popular hit")
	case c.Popularity >= 40:
		parts = append(parts, "Moderately known")
	default:
		parts = append(parts, "Hidden gem")
	}

	out := parts[0]
	for _, p := range parts[1:] {
		out += " | " + p
	}
	return out
}

// genreOverlap is the Jaccard similarity between the candidate's genres and
// the user's top genres.
func genreOverlap(genres []string, userGenres map[string]struct{}) float64 {
	if len(genres) == 0 || len(userGenres) == 0 {
		return 0
	}
	inter := 0
	seen := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		if _, ok := userGenres[g]; ok {
			inter++
		}
	}
	union := len(userGenres) + len(seen) - inter
	return float64(inter) / float64(union)
}

func topGenreSet(dist map[string]float64) map[string]struct{} {
	set := make(map[string]struct{}, len(dist))
	for g := range dist {
		set[g] = struct{}{}
	}
	return set
}

func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
