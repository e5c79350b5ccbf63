package domain

type GenreTrend struct {
	Genre string  `json:"genre"`
	Delta float64 `json:"delta"`
}

type MoodProfile struct {
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Radar      map[string]float64 `json:"radar"`
}

// InsightsResult is derived per request and never cached across profile
// changes. EntropyScore is Shannon entropy of the genre distribution in bits.
type InsightsResult struct {
	EntropyScore         float64      `json:"entropy_score"`
	UniqueScore          float64      `json:"unique_score"`
	Mood                 MoodProfile  `json:"mood"`
	RisingGenres         []GenreTrend `json:"rising_genres"`
	FallingGenres        []GenreTrend `json:"falling_genres"`
	StabilityScore       float64      `json:"stability_score"`
	TotalChangeMagnitude float64      `json:"total_change_magnitude"`
}
