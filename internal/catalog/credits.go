package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const creditColumns = `id, artist_id, credit, joinphrase, position, created_at`

// CreditQuery describes an artist-credit lookup. Set fields are combined
// with AND; Credit, Joinphrase and Index are pointers because the empty
// string and zero are legitimate match values.
type CreditQuery struct {
	ArtistID   string
	Credit     *string
	Joinphrase *string
	Index      *int
}

// CreateCredit inserts a new artist credit.
func (s *Store) CreateCredit(ctx context.Context, c *ArtistCredit) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artist_credits (id, artist_id, credit, joinphrase, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.ArtistID, c.Credit, c.Joinphrase, c.Index, now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("creating artist credit: %w", err)
	}
	return nil
}

// FindCredits returns all credits matching every set field of the query.
func (s *Store) FindCredits(ctx context.Context, q CreditQuery) ([]*ArtistCredit, error) {
	var conds []string
	var args []any
	if q.ArtistID != "" {
		conds = append(conds, "artist_id = ?")
		args = append(args, q.ArtistID)
	}
	if q.Credit != nil {
		conds = append(conds, "credit = ?")
		args = append(args, *q.Credit)
	}
	if q.Joinphrase != nil {
		conds = append(conds, "joinphrase = ?")
		args = append(args, *q.Joinphrase)
	}
	if q.Index != nil {
		conds = append(conds, "position = ?")
		args = append(args, *q.Index)
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("empty credit query")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+creditColumns+` FROM artist_credits WHERE `+strings.Join(conds, " AND ")+` ORDER BY created_at`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("finding artist credits: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var credits []*ArtistCredit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artist credit: %w", err)
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

// GetOrCreateCredit returns the best-scored credit matching the query, or
// creates one from defaults.
func (s *Store) GetOrCreateCredit(ctx context.Context, q CreditQuery, defaults *ArtistCredit, sortFields []string) (*ArtistCredit, bool, error) {
	candidates, err := s.FindCredits(ctx, q)
	if err != nil {
		return nil, false, err
	}
	if len(candidates) > 0 {
		return SortCandidates(candidates, sortFields)[0], false, nil
	}

	if err := s.CreateCredit(ctx, defaults); err != nil {
		return nil, false, err
	}
	return defaults, true, nil
}

// TrackCredits returns a track's credits ordered by index.
func (s *Store) TrackCredits(ctx context.Context, trackID string) ([]*ArtistCredit, error) {
	return s.joinedCredits(ctx, "track_artist_credits", "track_id", trackID)
}

// AlbumCredits returns an album's credits ordered by index.
func (s *Store) AlbumCredits(ctx context.Context, albumID string) ([]*ArtistCredit, error) {
	return s.joinedCredits(ctx, "album_artist_credits", "album_id", albumID)
}

func (s *Store) joinedCredits(ctx context.Context, table, column, id string) ([]*ArtistCredit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ac.id, ac.artist_id, ac.credit, ac.joinphrase, ac.position, ac.created_at
		FROM artist_credits ac
		JOIN `+table+` j ON j.artist_credit_id = ac.id
		WHERE j.`+column+` = ?
		ORDER BY ac.position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("listing credits: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var credits []*ArtistCredit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning credit: %w", err)
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

// SetTrackCredits replaces a track's credit set. Read-back order comes from
// the credits' index column, so a later import can correct attribution on
// an existing track without touching the track row itself.
func (s *Store) SetTrackCredits(ctx context.Context, trackID string, credits []*ArtistCredit) error {
	return s.setCredits(ctx, "track_artist_credits", "track_id", trackID, credits)
}

// SetAlbumCredits replaces an album's credit set.
func (s *Store) SetAlbumCredits(ctx context.Context, albumID string, credits []*ArtistCredit) error {
	return s.setCredits(ctx, "album_artist_credits", "album_id", albumID, credits)
}

func (s *Store) setCredits(ctx context.Context, table, column, id string, credits []*ArtistCredit) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+column+` = ?`, id); err != nil {
		return fmt.Errorf("clearing credits: %w", err)
	}
	for _, c := range credits {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+table+` (`+column+`, artist_credit_id) VALUES (?, ?)`,
			id, c.ID)
		if err != nil {
			return fmt.Errorf("linking credit: %w", err)
		}
	}
	return nil
}

func scanCredit(row rowScanner) (*ArtistCredit, error) {
	var c ArtistCredit
	var createdAt string
	if err := row.Scan(&c.ID, &c.ArtistID, &c.Credit, &c.Joinphrase, &c.Index, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}
