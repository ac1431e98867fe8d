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

const albumColumns = `id, title, mbid, fid, fdate, release_date, attributed_to, description, tags, cover_id, created_at, updated_at`

// AlbumQuery describes an album identity lookup. When MBID is set the
// title branch is ignored; otherwise the case-insensitive title must match
// together with membership of at least one of CreditIDs in the album's
// credit set. FID is always an additional OR branch.
type AlbumQuery struct {
	MBID        string
	FID         string
	TitleIexact string
	CreditIDs   []string
}

// CreateAlbum inserts a new album.
func (s *Store) CreateAlbum(ctx context.Context, a *Album) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO albums (id, title, mbid, fid, fdate, release_date, attributed_to, description, tags, cover_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.Title, a.MBID, a.FID, formatNullableTime(a.FDate), a.ReleaseDate,
		a.AttributedTo, a.Description, marshalTags(a.Tags), nullIfEmpty(a.CoverID),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating album: %w", err)
	}
	return nil
}

// GetAlbumByID retrieves an album by primary key.
func (s *Store) GetAlbumByID(ctx context.Context, id string) (*Album, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = ?`, id)
	a, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("album not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting album by id: %w", err)
	}
	return a, nil
}

// FindAlbums returns all albums matching any branch of the query.
func (s *Store) FindAlbums(ctx context.Context, q AlbumQuery) ([]*Album, error) {
	var conds []string
	var args []any

	if q.MBID != "" {
		conds = append(conds, "mbid = ?")
		args = append(args, q.MBID)
	} else if q.TitleIexact != "" && len(q.CreditIDs) > 0 {
		conds = append(conds,
			`(title = ? COLLATE NOCASE AND id IN (
				SELECT album_id FROM album_artist_credits WHERE artist_credit_id IN (`+placeholders(len(q.CreditIDs))+`)))`)
		args = append(args, q.TitleIexact)
		for _, id := range q.CreditIDs {
			args = append(args, id)
		}
	}
	if q.FID != "" {
		conds = append(conds, "fid = ?")
		args = append(args, q.FID)
	}
	if len(conds) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE `+strings.Join(conds, " OR ")+` ORDER BY created_at`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("finding albums: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var albums []*Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning album: %w", err)
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// GetOrCreateAlbum returns the best-scored album matching the query, or
// creates one from defaults.
func (s *Store) GetOrCreateAlbum(ctx context.Context, q AlbumQuery, defaults *Album) (*Album, bool, error) {
	candidates, err := s.FindAlbums(ctx, q)
	if err != nil {
		return nil, false, err
	}
	if len(candidates) > 0 {
		return SortCandidates(candidates, []string{"mbid", "fid"})[0], false, nil
	}

	if err := s.CreateAlbum(ctx, defaults); err != nil {
		return nil, false, err
	}
	return defaults, true, nil
}

// SetAlbumCover attaches a cover to an album.
func (s *Store) SetAlbumCover(ctx context.Context, albumID, attachmentID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE albums SET cover_id = ?, updated_at = ? WHERE id = ?`,
		attachmentID, time.Now().UTC().Format(time.RFC3339), albumID)
	if err != nil {
		return fmt.Errorf("setting album cover: %w", err)
	}
	return nil
}

func scanAlbum(row rowScanner) (*Album, error) {
	var a Album
	var fdate, coverID sql.NullString
	var tags, createdAt, updatedAt string

	err := row.Scan(&a.ID, &a.Title, &a.MBID, &a.FID, &fdate, &a.ReleaseDate,
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
