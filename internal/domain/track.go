package domain

import "time"

// AudioAttributes holds the per-track audio analysis values on a [0,1] scale,
// except Tempo which is in BPM. A negative value means the catalog had no
// measurement for that attribute; consumers impute a neutral default.
type AudioAttributes struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Speechiness      float64 `json:"speechiness"`
}

type Track struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Artists     []string         `json:"artists"`
	Album       string           `json:"album"`
	Popularity  int              `json:"popularity"` // 0-100
	ReleaseYear int              `json:"release_year,omitempty"`
	Genres      []string         `json:"genres,omitempty"`
	Audio       *AudioAttributes `json:"audio,omitempty"` // nil when no analysis exists
}

// LibraryTrack is a Track annotated with the user's play signals.
type LibraryTrack struct {
	Track         Track     `json:"track"`
	PlayCount     int       `json:"play_count"`
	FirstPlayedAt time.Time `json:"first_played_at"`
	LastPlayedAt  time.Time `json:"last_played_at"`
}
