package feature

import (
	"math"
	"time"

	"github.com/soniclens/taste-profile-service/internal/domain"
)

// Aggregator combines a user's annotated track set into a behavioral feature
// vector. It is pure: the caller decides whether the result is persisted.
type Aggregator struct {
	recentWindow time.Duration
	vocabSize    int
}

func NewAggregator(recentWindow time.Duration, vocab *Vocabulary) *Aggregator {
	return &Aggregator{
		recentWindow: recentWindow,
		vocabSize:    vocab.Size(),
	}
}

// Aggregate computes the behavioral summary of the given library relative to
// now. An empty library is not an error: the rate components default to 0 and
// the audio means to the neutral midpoint.
//
//   - repeat_rate: share of recent-window tracks that were already known in
//     the prior window.
//   - exploration_score: share of recent-window tracks first seen inside the
//     recent window.
//   - genre_diversity: Shannon entropy (bits) of the genre distribution,
//     normalized by log2 of the vocabulary size and clamped to [0,1].
//   - popularity_bias: mean track popularity / 100.
func (a *Aggregator) Aggregate(tracks []domain.LibraryTrack, now time.Time) domain.BehavioralFeatureVector {
	if len(tracks) == 0 {
		return domain.BehavioralFeatureVector{
			PopularityBias: neutralAttribute,
			MeanAudio:      neutralMeanAudio(),
		}
	}

	cutoff := now.Add(-a.recentWindow)

	recent := 0
	recurring := 0
	firstSeen := 0
	for _, t := range tracks {
		if t.LastPlayedAt.Before(cutoff) {
			continue
		}
		recent++
		if t.FirstPlayedAt.Before(cutoff) {
			recurring++
		} else {
			firstSeen++
		}
	}

	var repeatRate, explorationScore float64
	if recent > 0 {
		repeatRate = float64(recurring) / float64(recent)
		explorationScore = float64(firstSeen) / float64(recent)
	}

	return domain.BehavioralFeatureVector{
		RepeatRate:       repeatRate,
		ExplorationScore: explorationScore,
		GenreDiversity:   a.genreDiversity(tracks),
		PopularityBias:   meanPopularity(tracks) / 100.0,
		MeanAudio:        meanAudio(tracks),
	}
}

// GenreDistribution counts every genre occurrence across the library and
// normalizes to frequencies summing to 1. Tracks without genres contribute
// nothing; an all-empty library yields an empty map.
func GenreDistribution(tracks []domain.LibraryTrack) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, t := range tracks {
		for _, g := range t.Track.Genres {
			counts[g]++
			total++
		}
	}
	dist := make(map[string]float64, len(counts))
	if total == 0 {
		return dist
	}
	for g, c := range counts {
		dist[g] = float64(c) / float64(total)
	}
	return dist
}

// Entropy is the Shannon entropy of a frequency distribution in bits.
func Entropy(dist map[string]float64) float64 {
	h := 0.0
	for _, p := range dist {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

func (a *Aggregator) genreDiversity(tracks []domain.LibraryTrack) float64 {
	dist := GenreDistribution(tracks)
	if len(dist) == 0 || a.vocabSize < 2 {
		return 0
	}
	normalized := Entropy(dist) / math.Log2(float64(a.vocabSize))
	return math.Min(math.Max(normalized, 0), 1)
}

func meanPopularity(tracks []domain.LibraryTrack) float64 {
	sum := 0.0
	for _, t := range tracks {
		sum += float64(t.Track.Popularity)
	}
	return sum / float64(len(tracks))
}

func meanAudio(tracks []domain.LibraryTrack) domain.AudioAttributes {
	sums := make([]float64, AudioDim)
	for _, t := range tracks {
		for i, v := range NormalizedAudio(t.Track.Audio) {
			sums[i] += v
		}
	}
	n := float64(len(tracks))
	return domain.AudioAttributes{
		Danceability:     sums[0] / n,
		Energy:           sums[1] / n,
		Valence:          sums[2] / n,
		Tempo:            sums[3] / n,
		Acousticness:     sums[4] / n,
		Instrumentalness: sums[5] / n,
		Speechiness:      sums[6] / n,
	}
}

func neutralMeanAudio() domain.AudioAttributes {
	return domain.AudioAttributes{
		Danceability:     neutralAttribute,
		Energy:           neutralAttribute,
		Valence:          neutralAttribute,
		Tempo:            neutralAttribute,
		Acousticness:     neutralAttribute,
		Instrumentalness: neutralAttribute,
		Speechiness:      neutralAttribute,
	}
}
