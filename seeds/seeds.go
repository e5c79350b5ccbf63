package seeds

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	userCount    = 20
	trackCount   = 150
	libraryPicks = 35
)

func Setup(ctx context.Context, pool *pgxpool.Pool) error {
	rng := rand.New(rand.NewSource(42))

	// Truncate existing data before insert
	log.Info().Msg("seed: truncating existing data")
	if _, err := pool.Exec(ctx, `
		TRUNCATE user_library, profile_vectors, cluster_models, tracks, users RESTART IDENTITY CASCADE
	`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	log.Info().Msg("seed: inserting users")
	if err := seedUsers(ctx, pool, rng, userCount); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	log.Info().Msg("seed: inserting tracks")
	if err := seedTracks(ctx, pool, rng, trackCount); err != nil {
		return fmt.Errorf("seed tracks: %w", err)
	}

	log.Info().Msg("seed: inserting libraries")
	if err := seedLibraries(ctx, pool, rng, userCount); err != nil {
		return fmt.Errorf("seed libraries: %w", err)
	}

	log.Info().Msg("seed: complete")
	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand, n int) error {
	countries := []string{"US", "GB", "CA", "AU", "DE", "FR", "JP", "BR"}
	first := []string{"Alex", "Sam", "Jordan", "Casey", "Riley", "Morgan", "Quinn", "Avery"}
	last := []string{"Reed", "Hart", "Cole", "Lane", "Wren", "Page", "Kerr", "Voss"}

	rows := []string{}
	args := []any{}

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("user-%03d", i+1)
		name := fmt.Sprintf("%s %s", first[rng.Intn(len(first))], last[rng.Intn(len(last))])
		country := countries[rng.Intn(len(countries))]
		createdAt := time.Now().AddDate(0, 0, -rng.Intn(365))

		base := len(args)
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
		args = append(args, id, name, country, createdAt)
	}

	if len(rows) == 0 {
		return nil
	}

	query := "INSERT INTO users (id, display_name, country, created_at) VALUES " + strings.Join(rows, ", ")
	_, err := pool.Exec(ctx, query, args...)
	return err
}

// audioTendency shapes a genre's typical audio attributes; each seeded track
// jitters around these centers.
type audioTendency struct {
	danceability, energy, valence, tempo, acousticness, instrumentalness, speechiness float64
}

var genreTendencies = map[string]audioTendency{
	"pop":        {0.72, 0.70, 0.62, 120, 0.18, 0.02, 0.08},
	"rock":       {0.48, 0.80, 0.50, 130, 0.10, 0.08, 0.06},
	"indie rock": {0.50, 0.62, 0.44, 122, 0.30, 0.12, 0.05},
	"hip hop":    {0.80, 0.68, 0.55, 95, 0.12, 0.01, 0.28},
	"jazz":       {0.52, 0.38, 0.48, 110, 0.72, 0.55, 0.05},
	"classical":  {0.30, 0.22, 0.28, 90, 0.92, 0.85, 0.04},
	"electronic": {0.75, 0.78, 0.50, 128, 0.06, 0.60, 0.06},
	"folk":       {0.45, 0.35, 0.45, 105, 0.80, 0.18, 0.05},
	"metal":      {0.40, 0.92, 0.32, 145, 0.03, 0.25, 0.08},
	"r&b":        {0.68, 0.55, 0.52, 100, 0.28, 0.03, 0.12},
	"country":    {0.56, 0.58, 0.58, 115, 0.45, 0.02, 0.05},
	"ambient":    {0.30, 0.20, 0.30, 80, 0.70, 0.88, 0.03},
}

var genreArtists = map[string][]string{
	"pop":        {"Nova Carter", "The Brights", "Mira Solen"},
	"rock":       {"Iron Harbor", "The Vandellas", "Redline Echo"},
	"indie rock": {"Paper Foxes", "Glass Meridian", "Hollow Pines"},
	"hip hop":    {"Milo Vance", "Court Street Collective", "DJ Arclight"},
	"jazz":       {"The Blue Margin Trio", "Etta Rhodes", "Sal Moreno Quartet"},
	"classical":  {"Aurora Chamber Orchestra", "Lena Vesper", "Meridian Strings"},
	"electronic": {"Neon Atlas", "Pulsewave", "Orbital Garden"},
	"folk":       {"Wren & Willow", "The Harvest Line", "June Albright"},
	"metal":      {"Obsidian Gate", "Feral Crown", "Ashen Vigil"},
	"r&b":        {"Dree Langston", "Velvet Hour", "Simone Clay"},
	"country":    {"Dusty Mile", "The Prairie Sons", "Carolina Shaw"},
	"ambient":    {"Still Harbor", "Foglight", "Meridian Drift"},
}

var (
	trackAdjectives = []string{"Midnight", "Golden", "Electric", "Silent", "Broken", "Neon", "Wild", "Faded"}
	trackNouns      = []string{"River", "Signal", "Mirror", "Season", "Motorway", "Garden", "Static", "Harbor"}
)

func seedTracks(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand, n int) error {
	genres := make([]string, 0, len(genreTendencies))
	for g := range genreTendencies {
		genres = append(genres, g)
	}
	// map iteration order is random; sort for reproducible seeds
	sort.Strings(genres)

	rows := []string{}
	args := []any{}

	for i := 0; i < n; i++ {
		genre := genres[i%len(genres)]
		tendency := genreTendencies[genre]
		artists := genreArtists[genre]

		id := fmt.Sprintf("track-%04d", i+1)
		name := fmt.Sprintf("%s %s", trackAdjectives[rng.Intn(len(trackAdjectives))], trackNouns[rng.Intn(len(trackNouns))])
		artist := artists[rng.Intn(len(artists))]
		album := fmt.Sprintf("%s, Vol. %d", name, rng.Intn(3)+1)
		popularity := int(powerLawScore(rng) * 100)
		releaseYear := 1960 + rng.Intn(66)

		trackGenres := []string{genre}
		// a quarter of tracks straddle a second genre
		if rng.Float64() < 0.25 {
			other := genres[rng.Intn(len(genres))]
			if other != genre {
				trackGenres = append(trackGenres, other)
			}
		}

		// a few tracks have no audio analysis, exercising imputation
		var audio []any
		if rng.Float64() < 0.05 {
			audio = []any{nil, nil, nil, nil, nil, nil, nil}
		} else {
			audio = []any{
				jitter(rng, tendency.danceability),
				jitter(rng, tendency.energy),
				jitter(rng, tendency.valence),
				math.Round((tendency.tempo+rng.Float64()*20-10)*10) / 10,
				jitter(rng, tendency.acousticness),
				jitter(rng, tendency.instrumentalness),
				jitter(rng, tendency.speechiness),
			}
		}

		base := len(args)
		placeholders := make([]string, 14)
		for p := range placeholders {
			placeholders[p] = fmt.Sprintf("$%d", base+p+1)
		}
		rows = append(rows, "("+strings.Join(placeholders, ", ")+")")
		args = append(args, id, name, []string{artist}, album, popularity, releaseYear, trackGenres)
		args = append(args, audio...)
	}

	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO tracks
		(id, name, artists, album, popularity, release_year, genres,
		 danceability, energy, valence, tempo, acousticness, instrumentalness, speechiness)
		VALUES ` + strings.Join(rows, ", ")
	_, err := pool.Exec(ctx, query, args...)
	return err
}

func seedLibraries(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand, users int) error {
	rows := []string{}
	args := []any{}

	for u := 1; u <= users; u++ {
		userID := fmt.Sprintf("user-%03d", u)
		seen := make(map[int]bool)

		for p := 0; p < libraryPicks; p++ {
			// power-law pick so popular tracks dominate libraries
			idx := int(math.Ceil(math.Pow(rng.Float64(), 1.3) * trackCount))
			idx = max(1, min(idx, trackCount))
			if seen[idx] {
				continue
			}
			seen[idx] = true

			trackID := fmt.Sprintf("track-%04d", idx)
			firstPlayed := time.Now().AddDate(0, 0, -rng.Intn(365)-1)
			span := time.Since(firstPlayed)
			lastPlayed := firstPlayed.Add(time.Duration(rng.Float64() * float64(span)))
			playCount := 1 + rng.Intn(50)

			base := len(args)
			rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5))
			args = append(args, userID, trackID, playCount, firstPlayed, lastPlayed)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO user_library (user_id, track_id, play_count, first_played_at, last_played_at)
		VALUES ` + strings.Join(rows, ", ")
	_, err := pool.Exec(ctx, query, args...)
	return err
}

func jitter(rng *rand.Rand, center float64) float64 {
	v := center + rng.Float64()*0.2 - 0.1
	return math.Round(math.Min(math.Max(v, 0), 1)*1000) / 1000
}

func powerLawScore(rng *rand.Rand) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.001
	}
	raw := math.Pow(u, 2.0)
	if raw < 0.01 {
		raw = 0.01
	}
	return math.Round(raw*100) / 100
}
