package domain

import "time"

// BehavioralVectorDim is the fixed dimensionality of a BehavioralFeatureVector.
const BehavioralVectorDim = 11

// BehavioralFeatureVector is a fixed-dimension numeric summary of a user's
// listening behavior. Every component is in [0,1]; Tempo inside MeanAudio is
// already normalized by the aggregator. Absence of data yields 0 for the rate
// components and 0.5 for the audio means, never NaN.
type BehavioralFeatureVector struct {
	RepeatRate       float64         `json:"repeat_rate"`
	ExplorationScore float64         `json:"exploration_score"`
	GenreDiversity   float64         `json:"genre_diversity"`
	PopularityBias   float64         `json:"popularity_bias"`
	MeanAudio        AudioAttributes `json:"mean_audio"`
}

// Values flattens the vector into its canonical 11-dimension order:
// the four behavioral rates followed by the seven mean audio attributes.
func (v BehavioralFeatureVector) Values() []float64 {
	return append([]float64{
		v.RepeatRate,
		v.ExplorationScore,
		v.GenreDiversity,
		v.PopularityBias,
	}, v.AudioValues()...)
}

// AudioValues returns the seven mean audio components in canonical order.
// They are already on the normalized [0,1] scale, Tempo included; consumers
// must not re-normalize them.
func (v BehavioralFeatureVector) AudioValues() []float64 {
	return []float64{
		v.MeanAudio.Danceability,
		v.MeanAudio.Energy,
		v.MeanAudio.Valence,
		v.MeanAudio.Tempo,
		v.MeanAudio.Acousticness,
		v.MeanAudio.Instrumentalness,
		v.MeanAudio.Speechiness,
	}
}

// ListeningSummary is the human-readable companion of the feature vector.
type ListeningSummary struct {
	ListeningStyle     string   `json:"listening_style"`
	DiversityLevel     string   `json:"diversity_level"`
	TasteDescription   string   `json:"taste_description"`
	TrackAgePreference string   `json:"track_age_preference"` // "new", "mixed" or "classic"
	TopGenres          []string `json:"top_genres"`
}

// UserProfile is the cached per-user computation result. It is replaced
// wholesale on recompute, never patched in place.
type UserProfile struct {
	UserID            string                  `json:"user_id"`
	Tracks            []LibraryTrack          `json:"tracks"`
	Vector            BehavioralFeatureVector `json:"vector"`
	Summary           ListeningSummary        `json:"summary"`
	GenreDistribution map[string]float64      `json:"genre_distribution"`
	Cluster           *ClusterAssignment      `json:"cluster,omitempty"`
	ComputedAt        time.Time               `json:"computed_at"`
}
