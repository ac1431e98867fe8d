package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/coda-audio/coda/internal/catalog"
	"github.com/coda-audio/coda/internal/credits"
	"github.com/coda-audio/coda/internal/event"
	"github.com/coda-audio/coda/internal/library"
	"github.com/coda-audio/coda/internal/musicbrainz"
)

// Activity is a federation activity handed to the outbox.
type Activity struct {
	Type   string         `json:"type"`
	Object map[string]any `json:"object"`
}

// Outbox delivers activities to federation peers. Fire and forget; the
// importer never consumes a return value beyond the error for logging.
type Outbox interface {
	Dispatch(ctx context.Context, a Activity) error
}

// UploadMetadata is the JSON document stored on an upload: per-item
// config, forced values and optionally a pre-normalized metadata payload
// for uploads that have no local file (federation).
type UploadMetadata struct {
	Config      *InternalConfig `json:"config,omitempty"`
	TrackUUID   string          `json:"track_uuid,omitempty"`
	Title       *string         `json:"title,omitempty"`
	Position    *int            `json:"position,omitempty"`
	DiscNumber  *int            `json:"disc_number,omitempty"`
	MBID        *string         `json:"mbid,omitempty"`
	License     *string         `json:"license,omitempty"`
	Copyright   *string         `json:"copyright,omitempty"`
	Description *string         `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	ArtistID    *string         `json:"artist_id,omitempty"`
	AlbumID     *string         `json:"album_id,omitempty"`
	Metadata    *Metadata       `json:"metadata,omitempty"`
}

// ParseUploadMetadata decodes an upload's import metadata document.
func ParseUploadMetadata(raw string) (*UploadMetadata, error) {
	var m UploadMetadata
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("parsing upload metadata: %w", err)
	}
	if m.Config == nil {
		cfg := DefaultInternalConfig()
		m.Config = &cfg
	}
	return &m, nil
}

// Processor drives the per-upload import state machine:
// pending -> finished | errored | skipped.
type Processor struct {
	db            *sql.DB
	parser        *credits.Parser
	mb            MBClient
	extractor     Extractor
	bus           *event.Bus
	outbox        Outbox
	logger        *slog.Logger
	retryAttempts int
}

// NewProcessor creates a processor. The bus and outbox may be nil when
// broadcasting or federation dispatch is disabled globally.
func NewProcessor(db *sql.DB, parser *credits.Parser, mb MBClient, extractor Extractor, bus *event.Bus, outbox Outbox, logger *slog.Logger, retryAttempts int) *Processor {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &Processor{
		db:            db,
		parser:        parser,
		mb:            mb,
		extractor:     extractor,
		bus:           bus,
		outbox:        outbox,
		logger:        logger.With(slog.String("component", "importer")),
		retryAttempts: retryAttempts,
	}
}

// Process claims a pending upload and runs it to a terminal status.
// Returns ErrNotPending when the upload is not claimable. Unexpected
// errors are recorded on the upload as unknown_error and returned so the
// scheduler's error tracking still sees them.
func (p *Processor) Process(ctx context.Context, uploadID string) error {
	lib := library.NewStore(p.db)

	upload, err := lib.GetUploadByID(ctx, uploadID)
	if err != nil {
		return err
	}
	if upload == nil {
		return fmt.Errorf("upload not found: %s", uploadID)
	}

	claimed, err := lib.Claim(ctx, uploadID)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrNotPending
	}

	owner, err := lib.GetLibraryByID(ctx, upload.LibraryID)
	if err != nil {
		return err
	}
	if owner == nil {
		return fmt.Errorf("library not found: %s", upload.LibraryID)
	}

	meta, err := ParseUploadMetadata(upload.ImportMetadata)
	if err != nil {
		// The document is unreadable, so fall back to the default config
		// and still broadcast the errored status.
		cfg := DefaultInternalConfig()
		meta = &UploadMetadata{Config: &cfg}
		return p.fail(ctx, lib, upload, owner, meta, CodeInvalidMetadata, err.Error(), nil)
	}

	forced, err := p.forcedValues(ctx, owner, meta)
	if err != nil {
		return p.fail(ctx, lib, upload, owner, meta, CodeInvalidMetadata, err.Error(), nil)
	}

	merged, err := p.buildMetadata(upload, owner, meta, forced)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return p.fail(ctx, lib, upload, owner, meta, CodeInvalidMetadata, ve.Fields, ve.Raw)
		}
		return p.recordUnknown(ctx, lib, upload, owner, meta, err)
	}

	track, err := p.resolveWithRetry(ctx, merged, forced, owner.ActorID)
	if err != nil {
		var ie *ImportError
		if errors.As(err, &ie) {
			return p.fail(ctx, lib, upload, owner, meta, ie.Code, ie.Detail, nil)
		}
		var se *musicbrainz.ServiceError
		if errors.As(err, &se) {
			// Exhausted retries against the remote service. Record and
			// surface so the scheduler can try again later.
			if ferr := p.fail(ctx, lib, upload, owner, meta, "remote_service_error", se.Error(), nil); ferr != nil {
				return ferr
			}
			return err
		}
		return p.recordUnknown(ctx, lib, upload, owner, meta, err)
	}

	// Skip when the owner already has this track in any of their
	// libraries. Only the first known duplicate is referenced, keeping
	// the details bounded however many copies pile up.
	duplicates, err := lib.OwnedDuplicates(ctx, upload.ID, track.ID, owner.ActorID)
	if err != nil {
		return err
	}
	if len(duplicates) > 0 {
		details, _ := json.Marshal(map[string]any{
			"code":       CodeAlreadyImported,
			"duplicates": duplicates[0],
		})
		if err := lib.SetImportStatus(ctx, upload.ID, library.StatusSkipped, string(details), track.ID); err != nil {
			return err
		}
		p.broadcast(owner, meta, upload.ID, library.StatusSkipped)
		return nil
	}

	if strings.HasPrefix(upload.Source, "file://") && p.extractor != nil {
		path := strings.TrimPrefix(upload.Source, "file://")
		info, err := p.extractor.Info(path)
		if err != nil {
			p.logger.Warn("reading audio info failed",
				slog.String("upload_id", upload.ID), slog.String("error", err.Error()))
		} else {
			if err := lib.SetAudioInfo(ctx, upload.ID, info.Duration, info.Size, info.Bitrate); err != nil {
				return err
			}
		}
	}

	if err := lib.CreateTrackActorEntry(ctx, track.ID, owner.ID, upload.ID); err != nil {
		return err
	}

	if track.AlbumID != "" {
		album, err := catalog.NewStore(p.db).GetAlbumByID(ctx, track.AlbumID)
		if err != nil {
			return err
		}
		populateAlbumCover(ctx, catalog.NewStore(p.db), p.mb, p.logger, album, merged.Source)
	}

	if err := lib.SetImportStatus(ctx, upload.ID, library.StatusFinished, "{}", track.ID); err != nil {
		return err
	}
	p.broadcast(owner, meta, upload.ID, library.StatusFinished)

	if meta.Config.DispatchOutbox && p.outbox != nil {
		activity := Activity{Type: "Create", Object: map[string]any{
			"type":      "Audio",
			"upload_id": upload.ID,
			"track_id":  track.ID,
		}}
		if err := p.outbox.Dispatch(ctx, activity); err != nil {
			p.logger.Warn("outbox dispatch failed",
				slog.String("upload_id", upload.ID), slog.String("error", err.Error()))
		}
	}

	p.logger.Info("upload imported",
		slog.String("upload_id", upload.ID),
		slog.String("track_id", track.ID))
	return nil
}

// forcedValues materializes the upload's forced references into catalog
// entities. Channel uploads always force the channel artist.
func (p *Processor) forcedValues(ctx context.Context, owner *library.Library, meta *UploadMetadata) (ForcedValues, error) {
	cat := catalog.NewStore(p.db)
	forced := ForcedValues{
		Title:       meta.Title,
		Position:    meta.Position,
		DiscNumber:  meta.DiscNumber,
		MBID:        meta.MBID,
		License:     meta.License,
		Copyright:   meta.Copyright,
		Description: meta.Description,
		Tags:        meta.Tags,
	}

	if owner.IsChannel() {
		artist, err := cat.GetArtistByID(ctx, owner.ChannelArtistID)
		if err != nil {
			return forced, fmt.Errorf("loading channel artist: %w", err)
		}
		forced.Artist = artist
	} else if meta.ArtistID != nil {
		artist, err := cat.GetArtistByID(ctx, *meta.ArtistID)
		if err != nil {
			return forced, fmt.Errorf("loading forced artist: %w", err)
		}
		forced.Artist = artist
	}

	if meta.AlbumID != nil {
		album, err := cat.GetAlbumByID(ctx, *meta.AlbumID)
		if err != nil {
			return forced, fmt.Errorf("loading forced album: %w", err)
		}
		forced.Album = album
	}
	return forced, nil
}

// buildMetadata assembles the layered metadata for an upload. Channel
// uploads willingly ignore whatever is embedded in the file and rely on
// the caller's metadata only.
func (p *Processor) buildMetadata(upload *library.Upload, owner *library.Library, meta *UploadMetadata, forced ForcedValues) (*Metadata, error) {
	base := &Metadata{Source: upload.Source, TrackUUID: meta.TrackUUID}

	var extracted *Metadata
	switch {
	case meta.Metadata != nil:
		extracted = meta.Metadata
	case owner.IsChannel():
		extracted = metadataFromForced(forced)
	case strings.HasPrefix(upload.Source, "file://") && p.extractor != nil:
		var err error
		extracted, err = p.extractor.Extract(strings.TrimPrefix(upload.Source, "file://"))
		if err != nil {
			return nil, err
		}
	default:
		return nil, &ValidationError{Fields: map[string]string{
			"source": "upload has no readable metadata source",
		}}
	}

	return MergeLayers(base, extracted), nil
}

// resolveWithRetry runs the resolver in one transaction per attempt.
// Only remote service failures are retried; everything else surfaces
// immediately.
func (p *Processor) resolveWithRetry(ctx context.Context, meta *Metadata, forced ForcedValues, actorID string) (*catalog.Track, error) {
	var track *catalog.Track

	backoff := retry.WithMaxRetries(uint64(p.retryAttempts-1), retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		track, err = p.resolveOnce(ctx, meta, forced, actorID)
		var se *musicbrainz.ServiceError
		if errors.As(err, &se) {
			return retry.RetryableError(err)
		}
		return err
	})
	return track, err
}

func (p *Processor) resolveOnce(ctx context.Context, meta *Metadata, forced ForcedValues, actorID string) (*catalog.Track, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	resolver := NewResolver(catalog.NewStore(tx), p.parser, p.mb, p.logger)
	track, _, err := resolver.Resolve(ctx, meta, forced, actorID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing resolution: %w", err)
	}
	return track, nil
}

// fail records a terminal errored status with the given code. Returns
// nil: a recorded import failure is not a scheduler failure.
func (p *Processor) fail(ctx context.Context, lib *library.Store, upload *library.Upload, owner *library.Library, meta *UploadMetadata, code string, detail any, raw map[string]any) error {
	doc := map[string]any{"error_code": code}
	if detail != nil {
		doc["detail"] = detail
	}
	if raw != nil {
		doc["file_metadata"] = raw
	}
	details, _ := json.Marshal(doc)

	if err := lib.SetImportStatus(ctx, upload.ID, library.StatusErrored, string(details), ""); err != nil {
		return err
	}
	p.broadcast(owner, meta, upload.ID, library.StatusErrored)
	p.logger.Warn("upload import failed",
		slog.String("upload_id", upload.ID),
		slog.String("error_code", code))
	return nil
}

// recordUnknown records an unexpected failure once and re-raises it so
// the scheduler's retry and error tracking see the original error.
func (p *Processor) recordUnknown(ctx context.Context, lib *library.Store, upload *library.Upload, owner *library.Library, meta *UploadMetadata, cause error) error {
	if err := p.fail(ctx, lib, upload, owner, meta, CodeUnknown, cause.Error(), nil); err != nil {
		return err
	}
	return cause
}

func (p *Processor) broadcast(owner *library.Library, meta *UploadMetadata, uploadID, newStatus string) {
	if p.bus == nil || meta == nil || meta.Config == nil || !meta.Config.Broadcast {
		return
	}
	p.bus.Publish(event.Event{
		Type:    event.ImportStatusUpdated,
		Channel: fmt.Sprintf("user.%s.imports", owner.ActorID),
		Data: map[string]any{
			"upload_id":  uploadID,
			"old_status": library.StatusPending,
			"new_status": newStatus,
		},
	})
}
