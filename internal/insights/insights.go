package insights

import (
	"math"
	"sort"
	"time"

	"github.com/soniclens/taste-profile-service/internal/domain"
	"github.com/soniclens/taste-profile-service/internal/feature"
)

const trendLimit = 3

// Analyzer derives mood, entropy, uniqueness and genre-evolution insights
// from a computed profile. All results are ephemeral.
type Analyzer struct {
	evolutionThreshold float64
}

func NewAnalyzer(evolutionThreshold float64) *Analyzer {
	return &Analyzer{evolutionThreshold: evolutionThreshold}
}

// Analyze computes the insight set. populationCentroid is the mean behavioral
// vector of the population (or the user's assigned centroid); a nil or
// mismatched centroid yields a unique score of 0 rather than an error.
//
// EntropyScore is Shannon entropy in bits over the genre distribution and is
// unbounded above. UniqueScore saturates the centroid distance through
// 1 − exp(−d) so outliers stay inside [0,1].
func (a *Analyzer) Analyze(profile *domain.UserProfile, populationCentroid []float64) domain.InsightsResult {
	result := domain.InsightsResult{
		EntropyScore: round3(feature.Entropy(profile.GenreDistribution)),
		UniqueScore:  round3(uniqueScore(profile.Vector.Values(), populationCentroid)),
		Mood:         classifyMood(profile.Vector.MeanAudio),
	}

	early, late, ok := splitWindows(profile.Tracks)
	if !ok {
		result.StabilityScore = 1
		return result
	}
	evolution(feature.GenreDistribution(early), feature.GenreDistribution(late), a.evolutionThreshold, &result)
	return result
}

func uniqueScore(values, centroid []float64) float64 {
	if len(centroid) != len(values) {
		return 0
	}
	sum := 0.0
	for i := range values {
		d := values[i] - centroid[i]
		sum += d * d
	}
	return 1 - math.Exp(-math.Sqrt(sum))
}

// moodPrototype is a named point in (valence, energy, danceability,
// acousticness) space. Classification is nearest-neighbor over the table;
// earlier entries win distance ties.
type moodPrototype struct {
	label string
	point [4]float64
}

var moodPrototypes = []moodPrototype{
	{label: "Energetic & Happy", point: [4]float64{0.80, 0.80, 0.70, 0.20}},
	{label: "Calm & Content", point: [4]float64{0.70, 0.30, 0.40, 0.60}},
	{label: "Intense & Passionate", point: [4]float64{0.30, 0.80, 0.60, 0.20}},
	{label: "Melancholic & Reflective", point: [4]float64{0.25, 0.30, 0.30, 0.60}},
}

func classifyMood(audio domain.AudioAttributes) domain.MoodProfile {
	point := [4]float64{audio.Valence, audio.Energy, audio.Danceability, audio.Acousticness}

	best := moodPrototypes[0]
	bestDist := moodDistance(point, best.point)
	for _, p := range moodPrototypes[1:] {
		if d := moodDistance(point, p.point); d < bestDist {
			best, bestDist = p, d
		}
	}

	return domain.MoodProfile{
		Label:      best.label,
		Confidence: round3(1 / (1 + bestDist)),
		Radar: map[string]float64{
			"valence":          round3(audio.Valence),
			"energy":           round3(audio.Energy),
			"danceability":     round3(audio.Danceability),
			"acousticness":     round3(audio.Acousticness),
			"instrumentalness": round3(audio.Instrumentalness),
		},
	}
}

func moodDistance(a, b [4]float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// splitWindows partitions the library into the earliest and latest halves of
// its play-time span. Histories too short to span two windows report ok=false.
func splitWindows(tracks []domain.LibraryTrack) (early, late []domain.LibraryTrack, ok bool) {
	if len(tracks) < 2 {
		return nil, nil, false
	}
	var start, end time.Time
	for i, t := range tracks {
		if i == 0 || t.FirstPlayedAt.Before(start) {
			start = t.FirstPlayedAt
		}
		if i == 0 || t.LastPlayedAt.After(end) {
			end = t.LastPlayedAt
		}
	}
	if !end.After(start) {
		return nil, nil, false
	}
	mid := start.Add(end.Sub(start) / 2)

	for _, t := range tracks {
		if t.FirstPlayedAt.Before(mid) {
			early = append(early, t)
		}
		if !t.LastPlayedAt.Before(mid) {
			late = append(late, t)
		}
	}
	if len(early) == 0 || len(late) == 0 {
		return nil, nil, false
	}
	return early, late, true
}

// evolution reports genres whose frequency delta between the earliest and
// latest window exceeds the threshold, sorted by delta magnitude descending.
func evolution(earlyDist, lateDist map[string]float64, threshold float64, result *domain.InsightsResult) {
	all := make(map[string]struct{}, len(earlyDist)+len(lateDist))
	for g := range earlyDist {
		all[g] = struct{}{}
	}
	for g := range lateDist {
		all[g] = struct{}{}
	}

	var rising, falling []domain.GenreTrend
	totalChange := 0.0
	for g := range all {
		delta := lateDist[g] - earlyDist[g]
		totalChange += math.Abs(delta)
		switch {
		case delta > threshold:
			rising = append(rising, domain.GenreTrend{Genre: g, Delta: round3(delta)})
		case delta < -threshold:
			falling = append(falling, domain.GenreTrend{Genre: g, Delta: round3(delta)})
		}
	}

	byMagnitude := func(trends []domain.GenreTrend) {
		sort.Slice(trends, func(i, j int) bool {
			di, dj := math.Abs(trends[i].Delta), math.Abs(trends[j].Delta)
			if di != dj {
				return di > dj
			}
			return trends[i].Genre < trends[j].Genre
		})
	}
	byMagnitude(rising)
	byMagnitude(falling)
	if len(rising) > trendLimit {
		rising = rising[:trendLimit]
	}
	if len(falling) > trendLimit {
		falling = falling[:trendLimit]
	}

	result.RisingGenres = rising
	result.FallingGenres = falling
	result.StabilityScore = round3(math.Max(0, 1-totalChange/2))
	result.TotalChangeMagnitude = round3(totalChange)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
