package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateAttachment inserts stored binary content (a cover and its
// thumbnail).
func (s *Store) CreateAttachment(ctx context.Context, a *Attachment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, mimetype, url, content, thumbnail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Mimetype, a.URL, a.Content, a.Thumbnail, now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("creating attachment: %w", err)
	}
	return nil
}

// GetAttachmentByID retrieves an attachment by primary key.
func (s *Store) GetAttachmentByID(ctx context.Context, id string) (*Attachment, error) {
	var a Attachment
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mimetype, url, content, thumbnail, created_at FROM attachments WHERE id = ?`, id).
		Scan(&a.ID, &a.Mimetype, &a.URL, &a.Content, &a.Thumbnail, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attachment not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting attachment: %w", err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}
