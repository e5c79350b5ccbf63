package feature

import (
	"sort"

	"github.com/soniclens/taste-profile-service/internal/domain"
)

const topGenreCount = 5

// BuildSummary derives the human-readable profile summary from the computed
// vector and the underlying library.
func BuildSummary(vector domain.BehavioralFeatureVector, tracks []domain.LibraryTrack, dist map[string]float64, refYear int) domain.ListeningSummary {
	agePref := trackAgePreference(tracks, refYear)
	return domain.ListeningSummary{
		ListeningStyle:     listeningStyle(vector),
		DiversityLevel:     diversityLevel(vector.GenreDiversity),
		TasteDescription:   tasteDescription(agePref, vector.PopularityBias),
		TrackAgePreference: agePref,
		TopGenres:          topGenres(dist, topGenreCount),
	}
}

func listeningStyle(v domain.BehavioralFeatureVector) string {
	switch {
	case v.ExplorationScore > 0.7:
		return "Explorer - Always discovering new music"
	case v.RepeatRate > 0.5:
		return "Repeater - Loves replaying tracks"
	case v.RepeatRate > 0.3:
		return "Loyalist - Sticks to favorites"
	default:
		return "Balanced - Mix of old and new"
	}
}

func diversityLevel(diversity float64) string {
	switch {
	case diversity > 0.8:
		return "Very diverse"
	case diversity > 0.6:
		return "Moderately diverse"
	default:
		return "Focused taste"
	}
}

func tasteDescription(agePref string, popularityBias float64) string {
	switch {
	case agePref == "new" && popularityBias > 0.7:
		return "Trendsetter - Loves current hits"
	case agePref == "classic" && popularityBias < 0.5:
		return "Vintage connoisseur - Prefers classics"
	case popularityBias > 0.7:
		return "Mainstream - Follows popular music"
	default:
		return "Indie explorer - Discovers hidden gems"
	}
}

// trackAgePreference classifies the library by mean release year: within two
// years of refYear is "new", within ten is "mixed", older is "classic".
// Unknown release years fall back to "mixed".
func trackAgePreference(tracks []domain.LibraryTrack, refYear int) string {
	sum, n := 0, 0
	for _, t := range tracks {
		if t.Track.ReleaseYear > 0 {
			sum += t.Track.ReleaseYear
			n++
		}
	}
	if n == 0 {
		return "mixed"
	}
	avg := float64(sum) / float64(n)
	switch {
	case avg >= float64(refYear-2):
		return "new"
	case avg >= float64(refYear-10):
		return "mixed"
	default:
		return "classic"
	}
}

func topGenres(dist map[string]float64, n int) []string {
	genres := make([]string, 0, len(dist))
	for g := range dist {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		if dist[genres[i]] != dist[genres[j]] {
			return dist[genres[i]] > dist[genres[j]]
		}
		return genres[i] < genres[j]
	})
	if len(genres) > n {
		genres = genres[:n]
	}
	return genres
}
