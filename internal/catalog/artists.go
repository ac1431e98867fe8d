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

// artistColumns is the ordered list of columns for SELECT queries.
const artistColumns = `id, name, mbid, fid, fdate, attributed_to, description, tags, cover_id, created_at, updated_at`

// ArtistQuery describes an identity lookup. Non-empty fields are combined
// with OR; callers set MBID when they have one, the case-insensitive name
// otherwise, plus FID when known. Ranking between multiple matches is the
// scorer's job, not the query's.
type ArtistQuery struct {
	MBID       string
	FID        string
	NameIexact string
}

func (q ArtistQuery) empty() bool {
	return q.MBID == "" && q.FID == "" && q.NameIexact == ""
}

// CreateArtist inserts a new artist.
func (s *Store) CreateArtist(ctx context.Context, a *Artist) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artists (id, name, mbid, fid, fdate, attributed_to, description, tags, cover_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.Name, a.MBID, a.FID, formatNullableTime(a.FDate),
		a.AttributedTo, a.Description, marshalTags(a.Tags), nullIfEmpty(a.CoverID),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating artist: %w", err)
	}
	return nil
}

// GetArtistByID retrieves an artist by primary key.
func (s *Store) GetArtistByID(ctx context.Context, id string) (*Artist, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artistColumns+` FROM artists WHERE id = ?`, id)
	a, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artist not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting artist by id: %w", err)
	}
	return a, nil
}

// FindArtists returns all artists matching any branch of the query.
func (s *Store) FindArtists(ctx context.Context, q ArtistQuery) ([]*Artist, error) {
	if q.empty() {
		return nil, fmt.Errorf("empty artist query")
	}

	var conds []string
	var args []any
	if q.MBID != "" {
		conds = append(conds, "mbid = ?")
		args = append(args, q.MBID)
	}
	if q.NameIexact != "" {
		conds = append(conds, "name = ? COLLATE NOCASE")
		args = append(args, q.NameIexact)
	}
	if q.FID != "" {
		conds = append(conds, "fid = ?")
		args = append(args, q.FID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+artistColumns+` FROM artists WHERE `+strings.Join(conds, " OR ")+` ORDER BY created_at`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("finding artists: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var artists []*Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// GetOrCreateArtist returns the best-scored artist matching the query, or
// creates one from defaults. The second return value reports creation.
func (s *Store) GetOrCreateArtist(ctx context.Context, q ArtistQuery, defaults *Artist) (*Artist, bool, error) {
	candidates, err := s.FindArtists(ctx, q)
	if err != nil {
		return nil, false, err
	}
	if len(candidates) > 0 {
		return SortCandidates(candidates, []string{"mbid", "fid"})[0], false, nil
	}

	if err := s.CreateArtist(ctx, defaults); err != nil {
		return nil, false, err
	}
	return defaults, true, nil
}

// SetArtistCover attaches a cover to an artist.
func (s *Store) SetArtistCover(ctx context.Context, artistID, attachmentID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE artists SET cover_id = ?, updated_at = ? WHERE id = ?`,
		attachmentID, time.Now().UTC().Format(time.RFC3339), artistID)
	if err != nil {
		return fmt.Errorf("setting artist cover: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtist(row rowScanner) (*Artist, error) {
	var a Artist
	var fdate, coverID sql.NullString
	var tags, createdAt, updatedAt string

	err := row.Scan(&a.ID, &a.Name, &a.MBID, &a.FID, &fdate,
		&a.AttributedTo, &a.Description, &tags, &coverID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.FDate = scanNullableTime(fdate)
	a.CoverID = stringOrEmpty(coverID)
	a.Tags = unmarshalTags(tags)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}
