package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/soniclens/taste-profile-service/internal/domain"
)

// missingAttribute marks an audio attribute with no stored measurement; the
// feature extractor imputes a neutral value for negatives.
const missingAttribute = -1

// GetUserLibrary returns the user's liked/top tracks annotated with play
// signals, most recently played first.
func (r *Repository) GetUserLibrary(ctx context.Context, userID string) ([]domain.LibraryTrack, error) {
	exists, err := r.userExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.name, t.artists, t.album, t.popularity, t.release_year, t.genres,
		        t.danceability, t.energy, t.valence, t.tempo,
		        t.acousticness, t.instrumentalness, t.speechiness,
		        ul.play_count, ul.first_played_at, ul.last_played_at
		 FROM user_library ul
		 JOIN tracks t ON ul.track_id = t.id
		 WHERE ul.user_id = $1
		 ORDER BY ul.last_played_at DESC, t.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query library for user %s: %w", userID, err)
	}
	defer rows.Close()

	var items []domain.LibraryTrack
	for rows.Next() {
		var item domain.LibraryTrack
		var audio [7]*float64
		if err := rows.Scan(
			&item.Track.ID, &item.Track.Name, &item.Track.Artists, &item.Track.Album,
			&item.Track.Popularity, &item.Track.ReleaseYear, &item.Track.Genres,
			&audio[0], &audio[1], &audio[2], &audio[3], &audio[4], &audio[5], &audio[6],
			&item.PlayCount, &item.FirstPlayedAt, &item.LastPlayedAt,
		); err != nil {
			return nil, fmt.Errorf("scan library track: %w", err)
		}
		item.Track.Audio = buildAudio(audio)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate library tracks: %w", err)
	}
	return items, nil
}

// GetCandidateTracks returns catalog tracks absent from the user's library,
// most popular first, for use as the recommendation candidate pool.
func (r *Repository) GetCandidateTracks(ctx context.Context, userID string, limit int) ([]domain.Track, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.name, t.artists, t.album, t.popularity, t.release_year, t.genres,
		        t.danceability, t.energy, t.valence, t.tempo,
		        t.acousticness, t.instrumentalness, t.speechiness
		 FROM tracks t
		 LEFT JOIN user_library ul
		     ON ul.track_id = t.id AND ul.user_id = $1
		 WHERE ul.track_id IS NULL
		 ORDER BY t.popularity DESC, t.id
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query candidate tracks for user %s: %w", userID, err)
	}
	defer rows.Close()

	var tracks []domain.Track
	for rows.Next() {
		var t domain.Track
		var audio [7]*float64
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Artists, &t.Album, &t.Popularity, &t.ReleaseYear, &t.Genres,
			&audio[0], &audio[1], &audio[2], &audio[3], &audio[4], &audio[5], &audio[6],
		); err != nil {
			return nil, fmt.Errorf("scan candidate track: %w", err)
		}
		t.Audio = buildAudio(audio)
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate tracks: %w", err)
	}
	return tracks, nil
}

// GetKnownGenres returns the distinct genres across the catalog; the genre
// vocabulary is built from this once at startup.
func (r *Repository) GetKnownGenres(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT unnest(genres) FROM tracks ORDER BY 1`,
	)
	if err != nil {
		return nil, fmt.Errorf("query known genres: %w", err)
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genres: %w", err)
	}
	return genres, nil
}

// GetUserIDsPaginated returns user ids for one page.
func (r *Repository) GetUserIDsPaginated(ctx context.Context, page, limit int) ([]string, error) {
	offset := (page - 1) * limit
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query user ids for page %d: %w", page, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids: %w", err)
	}
	return ids, nil
}

// CountUsers returns the total user count.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}

func (r *Repository) userExists(ctx context.Context, userID string) (bool, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT id FROM users WHERE id = $1`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query user id=%s: %w", userID, err)
	}
	return true, nil
}

func buildAudio(cols [7]*float64) *domain.AudioAttributes {
	all := true
	for _, c := range cols {
		if c != nil {
			all = false
			break
		}
	}
	if all {
		return nil
	}
	val := func(p *float64) float64 {
		if p == nil {
			return missingAttribute
		}
		return *p
	}
	return &domain.AudioAttributes{
		Danceability:     val(cols[0]),
		Energy:           val(cols[1]),
		Valence:          val(cols[2]),
		Tempo:            val(cols[3]),
		Acousticness:     val(cols[4]),
		Instrumentalness: val(cols[5]),
		Speechiness:      val(cols[6]),
	}
}
