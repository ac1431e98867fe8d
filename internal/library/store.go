package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coda-audio/coda/internal/database"
)

// Store provides access to actors, libraries and uploads. It works
// against either the pool or a transaction.
type Store struct {
	db database.DBTX
}

// NewStore creates a store bound to the given handle.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

// CreateActor inserts a new actor.
func (s *Store) CreateActor(ctx context.Context, a *Actor) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO actors (id, preferred_username, domain, fid, is_local, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.PreferredUsername, a.Domain, a.FID, boolToInt(a.IsLocal), a.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("creating actor: %w", err)
	}
	return nil
}

// GetActorByID retrieves an actor by primary key.
func (s *Store) GetActorByID(ctx context.Context, id string) (*Actor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, preferred_username, domain, fid, is_local, created_at
		FROM actors WHERE id = ?
	`, id)

	var a Actor
	var isLocal int
	var createdAt string
	err := row.Scan(&a.ID, &a.PreferredUsername, &a.Domain, &a.FID, &isLocal, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting actor: %w", err)
	}
	a.IsLocal = isLocal != 0
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

// GetLocalActorByUsername retrieves a local actor by preferred username.
// Returns nil when no such actor exists.
func (s *Store) GetLocalActorByUsername(ctx context.Context, username string) (*Actor, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM actors WHERE preferred_username = ? AND is_local = 1 LIMIT 1
	`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting local actor: %w", err)
	}
	return s.GetActorByID(ctx, id)
}

// GetLibraryByName retrieves an actor's library by name. Returns nil
// when no such library exists.
func (s *Store) GetLibraryByName(ctx context.Context, actorID, name string) (*Library, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM libraries WHERE actor_id = ? AND name = ? LIMIT 1
	`, actorID, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting library by name: %w", err)
	}
	return s.GetLibraryByID(ctx, id)
}

// CreateLibrary inserts a new library. Channel libraries must carry a
// channel artist.
func (s *Store) CreateLibrary(ctx context.Context, l *Library) error {
	if l.Type == "" {
		l.Type = TypeRegular
	}
	if l.Type == TypeChannel && l.ChannelArtistID == "" {
		return fmt.Errorf("channel library requires a channel artist")
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO libraries (id, actor_id, name, fid, type, channel_artist_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.ActorID, l.Name, l.FID, l.Type, nullIfEmpty(l.ChannelArtistID), l.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("creating library: %w", err)
	}
	return nil
}

// GetLibraryByID retrieves a library by primary key.
func (s *Store) GetLibraryByID(ctx context.Context, id string) (*Library, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, actor_id, name, fid, type, channel_artist_id, created_at
		FROM libraries WHERE id = ?
	`, id)

	var l Library
	var channelArtistID sql.NullString
	var createdAt string
	err := row.Scan(&l.ID, &l.ActorID, &l.Name, &l.FID, &l.Type, &channelArtistID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting library: %w", err)
	}
	if channelArtistID.Valid {
		l.ChannelArtistID = channelArtistID.String
	}
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &l, nil
}

const uploadColumns = `id, library_id, track_id, source, import_status, import_details, import_metadata, import_date, claimed_at, duration, size, bitrate, created_at`

// CreateUpload inserts a new upload in pending status unless the caller
// set one.
func (s *Store) CreateUpload(ctx context.Context, u *Upload) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.ImportStatus == "" {
		u.ImportStatus = StatusPending
	}
	if u.ImportDetails == "" {
		u.ImportDetails = "{}"
	}
	if u.ImportMetadata == "" {
		u.ImportMetadata = "{}"
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads (id, library_id, track_id, source, import_status, import_details, import_metadata, import_date, claimed_at, duration, size, bitrate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.LibraryID, nullIfEmpty(u.TrackID), u.Source, u.ImportStatus,
		u.ImportDetails, u.ImportMetadata, formatNullableTime(u.ImportDate),
		formatNullableTime(u.ClaimedAt), u.Duration, u.Size, u.Bitrate,
		u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("creating upload: %w", err)
	}
	return nil
}

// GetUploadByID retrieves an upload by primary key.
func (s *Store) GetUploadByID(ctx context.Context, id string) (*Upload, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = ?`, id)
	u, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting upload: %w", err)
	}
	return u, nil
}

// Claim marks a pending, unclaimed upload as claimed by this worker.
// Returns false when the upload is not claimable, either because it is
// not pending or because another worker got there first. The conditional
// update makes the claim atomic.
func (s *Store) Claim(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE uploads SET claimed_at = ?
		WHERE id = ? AND import_status = ? AND claimed_at IS NULL
	`, time.Now().UTC().Format(time.RFC3339), id, StatusPending)
	if err != nil {
		return false, fmt.Errorf("claiming upload: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claiming upload: %w", err)
	}
	return n > 0, nil
}

// ReclaimStale releases claims older than ttl so crashed workers do not
// strand pending uploads. Returns the number of uploads released.
func (s *Store) ReclaimStale(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-ttl).Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		UPDATE uploads SET claimed_at = NULL
		WHERE import_status = ? AND claimed_at IS NOT NULL AND claimed_at < ?
	`, StatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaiming stale uploads: %w", err)
	}
	return res.RowsAffected()
}

// ListClaimable returns ids of pending, unclaimed uploads, oldest first.
func (s *Store) ListClaimable(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM uploads
		WHERE import_status = ? AND claimed_at IS NULL
		ORDER BY created_at LIMIT ?
	`, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("listing claimable uploads: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning upload id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetImportStatus records a terminal status transition with its details
// document and optionally links the resolved track.
func (s *Store) SetImportStatus(ctx context.Context, id, status, details, trackID string) error {
	if details == "" {
		details = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE uploads
		SET import_status = ?, import_details = ?, import_date = ?,
		    track_id = COALESCE(?, track_id)
		WHERE id = ?
	`, status, details, time.Now().UTC().Format(time.RFC3339), nullIfEmpty(trackID), id)
	if err != nil {
		return fmt.Errorf("setting import status: %w", err)
	}
	return nil
}

// SetAudioInfo records technical audio properties on an upload.
func (s *Store) SetAudioInfo(ctx context.Context, id string, duration int, size int64, bitrate int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE uploads SET duration = ?, size = ?, bitrate = ? WHERE id = ?
	`, duration, size, bitrate, id)
	if err != nil {
		return fmt.Errorf("setting audio info: %w", err)
	}
	return nil
}

// OwnedDuplicates returns ids of other uploads of the same track in any
// library owned by the given actor, earliest first.
func (s *Store) OwnedDuplicates(ctx context.Context, uploadID, trackID, actorID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id
		FROM uploads u
		JOIN libraries l ON u.library_id = l.id
		WHERE l.actor_id = ? AND u.track_id = ? AND u.id != ?
		ORDER BY u.created_at
	`, actorID, trackID, uploadID)
	if err != nil {
		return nil, fmt.Errorf("finding owned duplicates: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning duplicate id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateTrackActorEntry records the denormalized (track, actor, library,
// upload) tuple used for fast ownership lookups. Idempotent.
func (s *Store) CreateTrackActorEntry(ctx context.Context, trackID, libraryID, uploadID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO track_actors (track_id, actor_id, library_id, upload_id)
		SELECT ?, l.actor_id, l.id, ? FROM libraries l WHERE l.id = ?
	`, trackID, uploadID, libraryID)
	if err != nil {
		return fmt.Errorf("creating track actor entry: %w", err)
	}
	return nil
}

// TrackActorCount returns how many denormalized entries reference the
// given track.
func (s *Store) TrackActorCount(ctx context.Context, trackID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM track_actors WHERE track_id = ?`, trackID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting track actor entries: %w", err)
	}
	return n, nil
}

func scanUpload(row interface{ Scan(...any) error }) (*Upload, error) {
	var u Upload
	var trackID, importDate, claimedAt sql.NullString
	var createdAt string

	err := row.Scan(&u.ID, &u.LibraryID, &trackID, &u.Source, &u.ImportStatus,
		&u.ImportDetails, &u.ImportMetadata, &importDate, &claimedAt,
		&u.Duration, &u.Size, &u.Bitrate, &createdAt)
	if err != nil {
		return nil, err
	}

	if trackID.Valid {
		u.TrackID = trackID.String
	}
	u.ImportDate = scanNullableTime(importDate)
	u.ClaimedAt = scanNullableTime(claimedAt)
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func scanNullableTime(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
