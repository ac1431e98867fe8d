package importer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/coda-audio/coda/internal/catalog"
	"github.com/coda-audio/coda/internal/image"
)

var coverNames = []string{"cover", "folder"}

var coverExtensions = []struct {
	ext  string
	mime string
}{
	{"jpg", "image/jpeg"},
	{"jpeg", "image/jpeg"},
	{"png", "image/png"},
}

// coverFromDirectory looks for a cover image file in the directory of
// the upload source. Returns nil when none exists.
func coverFromDirectory(dir string) (*CoverData, error) {
	for _, name := range coverNames {
		for _, it := range coverExtensions {
			path := filepath.Join(dir, name+"."+it.ext)
			data, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, fmt.Errorf("reading cover file: %w", err)
			}
			return &CoverData{MimeType: it.mime, Content: data}, nil
		}
	}
	return nil, nil
}

// storeCover persists cover data as an attachment with a best-effort
// thumbnail. Returns the attachment id.
func storeCover(ctx context.Context, cat *catalog.Store, cover *CoverData) (string, error) {
	att := &catalog.Attachment{
		Mimetype: cover.MimeType,
		URL:      cover.URL,
		Content:  cover.Content,
	}
	if len(cover.Content) > 0 {
		if thumb, _, err := image.Thumbnail(bytes.NewReader(cover.Content)); err == nil {
			att.Thumbnail = thumb
		}
	}
	if err := cat.CreateAttachment(ctx, att); err != nil {
		return "", err
	}
	return att.ID, nil
}

// populateAlbumCover fills a missing album cover: first from an image
// file next to the upload source, then from the Cover Art Archive when
// the album carries an MBID. Failures are logged, never fatal.
func populateAlbumCover(ctx context.Context, cat *catalog.Store, mb MBClient, logger *slog.Logger, album *catalog.Album, source string) {
	if album == nil || album.CoverID != "" {
		return
	}

	if strings.HasPrefix(source, "file://") {
		dir := filepath.Dir(strings.TrimPrefix(source, "file://"))
		cover, err := coverFromDirectory(dir)
		if err != nil {
			logger.Warn("scanning directory for cover failed",
				slog.String("album_id", album.ID), slog.String("error", err.Error()))
		}
		if cover != nil {
			if err := attachAlbumCover(ctx, cat, album, cover); err != nil {
				logger.Warn("attaching directory cover failed",
					slog.String("album_id", album.ID), slog.String("error", err.Error()))
			}
			return
		}
	}

	if album.MBID == "" || mb == nil {
		return
	}
	data, mimeType, err := mb.GetCoverFront(ctx, album.MBID)
	if err != nil {
		logger.Warn("fetching remote cover failed",
			slog.String("album_id", album.ID),
			slog.String("mbid", album.MBID),
			slog.String("error", err.Error()))
		return
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	cover := &CoverData{MimeType: mimeType, Content: data}
	if err := attachAlbumCover(ctx, cat, album, cover); err != nil {
		logger.Warn("attaching remote cover failed",
			slog.String("album_id", album.ID), slog.String("error", err.Error()))
	}
}

func attachAlbumCover(ctx context.Context, cat *catalog.Store, album *catalog.Album, cover *CoverData) error {
	id, err := storeCover(ctx, cat, cover)
	if err != nil {
		return err
	}
	if err := cat.SetAlbumCover(ctx, album.ID, id); err != nil {
		return err
	}
	album.CoverID = id
	return nil
}
