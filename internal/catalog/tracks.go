package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const trackColumns = `id, title, album_id, mbid, fid, fdate, position, disc_number, license, copyright, attributed_to, description, tags, cover_id, created_at, updated_at`

// TrackFuzzy is the fallback identity tuple used when no identifier
// matches: case-insensitive title, membership in the resolved credit set,
// album (empty means albumless), position and disc number.
type TrackFuzzy struct {
	TitleIexact string
	CreditIDs   []string
	AlbumID     string
	Position    int
	DiscNumber  *int
}

// TrackQuery describes a track identity lookup. Branches are OR-combined:
// the fuzzy tuple (when set), MBID (paired with AlbumMBID when known), and
// FID.
type TrackQuery struct {
	MBID      string
	AlbumMBID string
	FID       string
	Fuzzy     *TrackFuzzy
}

func (q TrackQuery) empty() bool {
	return q.MBID == "" && q.FID == "" && q.Fuzzy == nil
}

// CreateTrack inserts a new track.
func (s *Store) CreateTrack(ctx context.Context, t *Track) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (id, title, album_id, mbid, fid, fdate, position, disc_number, license, copyright, attributed_to, description, tags, cover_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.Title, nullIfEmpty(t.AlbumID), t.MBID, t.FID, formatNullableTime(t.FDate),
		t.Position, nullableInt(t.DiscNumber), t.License, t.Copyright,
		t.AttributedTo, t.Description, marshalTags(t.Tags), nullIfEmpty(t.CoverID),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating track: %w", err)
	}
	return nil
}

// GetTrackByID retrieves a track by primary key. Returns nil when absent so
// the resolver's escape hatch can branch on it.
func (s *Store) GetTrackByID(ctx context.Context, id string) (*Track, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting track by id: %w", err)
	}
	return t, nil
}

// FindTracks returns all tracks matching any branch of the query.
func (s *Store) FindTracks(ctx context.Context, q TrackQuery) ([]*Track, error) {
	if q.empty() {
		return nil, fmt.Errorf("empty track query")
	}

	var conds []string
	var args []any

	if f := q.Fuzzy; f != nil && len(f.CreditIDs) > 0 {
		// An empty credit set can match no membership, so the whole
		// fuzzy branch is skipped in that case.
		cond := `(t.title = ? COLLATE NOCASE
			AND t.id IN (SELECT track_id FROM track_artist_credits WHERE artist_credit_id IN (` + placeholders(len(f.CreditIDs)) + `))
			AND t.album_id IS ?
			AND t.position = ?
			AND t.disc_number IS ?)`
		args = append(args, f.TitleIexact)
		for _, id := range f.CreditIDs {
			args = append(args, id)
		}
		args = append(args, nullIfEmpty(f.AlbumID), f.Position, nullableInt(f.DiscNumber))
		conds = append(conds, cond)
	}
	if q.MBID != "" {
		if q.AlbumMBID != "" {
			conds = append(conds, `(t.mbid = ? AND t.album_id IN (SELECT id FROM albums WHERE mbid = ?))`)
			args = append(args, q.MBID, q.AlbumMBID)
		} else {
			conds = append(conds, `t.mbid = ?`)
			args = append(args, q.MBID)
		}
	}
	if q.FID != "" {
		conds = append(conds, `t.fid = ?`)
		args = append(args, q.FID)
	}
	if len(conds) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+trackColumns+` FROM tracks t WHERE `+strings.Join(conds, " OR ")+` ORDER BY t.created_at`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("finding tracks: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tracks []*Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// GetOrCreateTrack returns the best-scored track matching the query, or
// creates one from defaults.
func (s *Store) GetOrCreateTrack(ctx context.Context, q TrackQuery, defaults *Track) (*Track, bool, error) {
	candidates, err := s.FindTracks(ctx, q)
	if err != nil {
		return nil, false, err
	}
	if len(candidates) > 0 {
		return SortCandidates(candidates, []string{"mbid", "fid"})[0], false, nil
	}

	if err := s.CreateTrack(ctx, defaults); err != nil {
		return nil, false, err
	}
	return defaults, true, nil
}

// SetTrackCover attaches a cover to a track.
func (s *Store) SetTrackCover(ctx context.Context, trackID, attachmentID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tracks SET cover_id = ?, updated_at = ? WHERE id = ?`,
		attachmentID, time.Now().UTC().Format(time.RFC3339), trackID)
	if err != nil {
		return fmt.Errorf("setting track cover: %w", err)
	}
	return nil
}

func scanTrack(row rowScanner) (*Track, error) {
	var t Track
	var albumID, fdate, coverID sql.NullString
	var discNumber sql.NullInt64
	var tags, createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.Title, &albumID, &t.MBID, &t.FID, &fdate,
		&t.Position, &discNumber, &t.License, &t.Copyright,
		&t.AttributedTo, &t.Description, &tags, &coverID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.AlbumID = stringOrEmpty(albumID)
	t.FDate = scanNullableTime(fdate)
	t.DiscNumber = scanNullableInt(discNumber)
	t.CoverID = stringOrEmpty(coverID)
	t.Tags = unmarshalTags(tags)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &t, nil
}
