package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coda-audio/coda/internal/catalog"
	"github.com/coda-audio/coda/internal/credits"
	"github.com/coda-audio/coda/internal/licenses"
)

// Resolver turns normalized metadata into a resolved track, creating
// artists, credits and albums as needed. Bind it to a transaction-scoped
// catalog store so one upload's resolution is atomic.
type Resolver struct {
	cat    *catalog.Store
	parser *credits.Parser
	mb     MBClient
	logger *slog.Logger
}

// NewResolver creates a resolver over the given catalog store.
func NewResolver(cat *catalog.Store, parser *credits.Parser, mb MBClient, logger *slog.Logger) *Resolver {
	return &Resolver{cat: cat, parser: parser, mb: mb, logger: logger}
}

// Resolve produces the track for the given metadata and forced values.
// Repeated resolution of the same identity returns the same track: the
// exact identity query runs first every time, before any fuzzy fallback.
// The returned bool reports whether the track was created.
func (r *Resolver) Resolve(ctx context.Context, meta *Metadata, forced ForcedValues, attributedTo string) (*catalog.Track, bool, error) {
	// Escape hatch: a peer told us exactly which local track this is.
	if meta.TrackUUID != "" {
		track, err := r.cat.GetTrackByID(ctx, meta.TrackUUID)
		if err != nil {
			return nil, false, err
		}
		if track == nil {
			return nil, false, &ImportError{Code: CodeTrackUUIDNotFound}
		}
		return track, false, nil
	}

	trackMBID := meta.MBID
	if forced.MBID != nil {
		trackMBID = *forced.MBID
	}
	albumMBID := ""
	if meta.Album != nil {
		albumMBID = meta.Album.MBID
	}
	trackFID := meta.FID

	// Exact identity first: a known (mbid, album mbid) pair or a
	// federation id short-circuits everything else.
	exact := catalog.TrackQuery{FID: trackFID}
	if trackMBID != "" && albumMBID != "" {
		exact.MBID = trackMBID
		exact.AlbumMBID = albumMBID
	}
	if exact.MBID != "" || exact.FID != "" {
		found, err := r.cat.FindTracks(ctx, exact)
		if err != nil {
			return nil, false, err
		}
		if len(found) > 0 {
			return catalog.SortCandidates(found, []string{"mbid", "fid"})[0], false, nil
		}
	}

	trackCredits, err := r.resolveTrackCredits(ctx, meta, forced, trackMBID, attributedTo)
	if err != nil {
		return nil, false, err
	}

	album, err := r.resolveAlbum(ctx, meta, forced, trackCredits, attributedTo)
	if err != nil {
		return nil, false, err
	}

	title := meta.Title
	if forced.Title != nil {
		title = *forced.Title
	}
	position := 1
	if forced.Position != nil {
		position = *forced.Position
	} else if meta.Position != nil {
		position = *meta.Position
	}
	discNumber := meta.DiscNumber
	if forced.DiscNumber != nil {
		discNumber = forced.DiscNumber
	}
	license := ""
	if forced.License != nil {
		license = *forced.License
	} else if match := licenses.Match(meta.License, meta.Copyright); match != nil {
		license = match.Code
	}
	copyright := meta.Copyright
	if forced.Copyright != nil {
		copyright = *forced.Copyright
	}
	description := meta.Description
	if forced.Description != nil {
		description = *forced.Description
	}
	tags := meta.Tags
	if forced.Tags != nil {
		tags = forced.Tags
	}
	coverData := meta.CoverData
	if forced.Cover != nil {
		coverData = forced.Cover
	}

	albumID := ""
	if album != nil {
		albumID = album.ID
	}

	query := catalog.TrackQuery{
		MBID:      trackMBID,
		AlbumMBID: albumMBID,
		FID:       trackFID,
		Fuzzy: &catalog.TrackFuzzy{
			TitleIexact: title,
			CreditIDs:   creditIDs(trackCredits),
			AlbumID:     albumID,
			Position:    position,
			DiscNumber:  discNumber,
		},
	}

	defaults := &catalog.Track{
		Title:        title,
		AlbumID:      albumID,
		MBID:         trackMBID,
		FID:          trackFID,
		FDate:        meta.FDate,
		Position:     position,
		DiscNumber:   discNumber,
		License:      license,
		Copyright:    copyright,
		AttributedTo: attributedTo,
		Description:  description,
		Tags:         tags,
	}

	track, created, err := r.cat.GetOrCreateTrack(ctx, query, defaults)
	if err != nil {
		return nil, false, err
	}

	if created && coverData != nil {
		id, err := storeCover(ctx, r.cat, coverData)
		if err != nil {
			return nil, false, fmt.Errorf("storing track cover: %w", err)
		}
		if err := r.cat.SetTrackCover(ctx, track.ID, id); err != nil {
			return nil, false, err
		}
	}

	// Always re-set the credits: a later import with corrected
	// attribution fixes the existing track instead of duplicating it.
	if err := r.cat.SetTrackCredits(ctx, track.ID, trackCredits); err != nil {
		return nil, false, err
	}
	return track, created, nil
}

func (r *Resolver) resolveTrackCredits(ctx context.Context, meta *Metadata, forced ForcedValues, trackMBID, attributedTo string) ([]*catalog.ArtistCredit, error) {
	if forced.Artist != nil {
		credit, _, err := r.cat.GetOrCreateCredit(ctx,
			catalog.CreditQuery{ArtistID: forced.Artist.ID},
			&catalog.ArtistCredit{
				ArtistID:   forced.Artist.ID,
				Credit:     forced.Artist.Name,
				Joinphrase: "",
			},
			[]string{"mbid", "fid"})
		if err != nil {
			return nil, err
		}
		return []*catalog.ArtistCredit{credit}, nil
	}
	if trackMBID != "" {
		return r.creditsFromMusicBrainz(ctx, "recording", trackMBID, attributedTo)
	}
	return r.creditsFromArtistMetadata(ctx, meta.Artists, attributedTo)
}

func (r *Resolver) resolveAlbum(ctx context.Context, meta *Metadata, forced ForcedValues, trackCredits []*catalog.ArtistCredit, attributedTo string) (*catalog.Album, error) {
	if forced.Album != nil {
		return forced.Album, nil
	}
	if meta.Album == nil {
		return nil, nil
	}
	albumMeta := meta.Album

	var albumCredits []*catalog.ArtistCredit
	var err error
	switch {
	case albumMeta.MBID != "":
		albumCredits, err = r.creditsFromMusicBrainz(ctx, "release", albumMeta.MBID, attributedTo)
		if err != nil {
			// An unreachable release is not fatal for the import; the
			// track's own credits stand in for the album.
			r.logger.Warn("fetching release credits failed",
				slog.String("mbid", albumMeta.MBID), slog.String("error", err.Error()))
			albumCredits = trackCredits
		}
	case len(albumMeta.Artists) > 0:
		albumCredits, err = r.creditsFromArtistMetadata(ctx, albumMeta.Artists, attributedTo)
		if err != nil {
			return nil, err
		}
	default:
		albumCredits = trackCredits
	}

	query := catalog.AlbumQuery{
		MBID:        albumMeta.MBID,
		FID:         albumMeta.FID,
		TitleIexact: albumMeta.Title,
		CreditIDs:   creditIDs(albumCredits),
	}
	defaults := &catalog.Album{
		Title:        albumMeta.Title,
		MBID:         albumMeta.MBID,
		FID:          albumMeta.FID,
		FDate:        albumMeta.FDate,
		ReleaseDate:  albumMeta.ReleaseDate,
		AttributedTo: attributedTo,
		Description:  albumMeta.Description,
		Tags:         albumMeta.Tags,
	}

	album, created, err := r.cat.GetOrCreateAlbum(ctx, query, defaults)
	if err != nil {
		return nil, err
	}
	if created && albumMeta.CoverData != nil {
		if err := attachAlbumCover(ctx, r.cat, album, albumMeta.CoverData); err != nil {
			return nil, fmt.Errorf("storing album cover: %w", err)
		}
	}
	if err := r.cat.SetAlbumCredits(ctx, album.ID, albumCredits); err != nil {
		return nil, err
	}
	return album, nil
}

// creditsFromArtistMetadata resolves artist entries into credits.
// Entries carrying an explicit joinphrase (federation payloads) map one
// to one; plain names go through the parser, which may split one entry
// into several credits.
func (r *Resolver) creditsFromArtistMetadata(ctx context.Context, entries []ArtistMeta, attributedTo string) ([]*catalog.ArtistCredit, error) {
	var parsed []credits.Credit
	for i, entry := range entries {
		artist, err := r.getArtist(ctx, entry, attributedTo)
		if err != nil {
			return nil, err
		}

		if entry.Joinphrase != nil || entry.Credit != "" {
			joinphrase := r.parser.DefaultJoinphrase()
			if entry.Joinphrase != nil {
				joinphrase = *entry.Joinphrase
			}
			if i+1 == len(entries) {
				joinphrase = ""
			}
			creditText := entry.Credit
			if creditText == "" {
				creditText = artist.Name
			}
			parsed = append(parsed, credits.Credit{
				Credit:     creditText,
				Joinphrase: joinphrase,
				Index:      i,
				Artist:     artist,
			})
			continue
		}

		// The default join phrase is forced between entries but never
		// after the last one.
		forcedJoin := ""
		if i+1 < len(entries) {
			forcedJoin = r.parser.DefaultJoinphrase()
		}
		var forcedIndex *int
		if i > 0 {
			idx := i
			forcedIndex = &idx
		}
		parsed = append(parsed, r.parser.Parse(artist.Name, forcedJoin, forcedIndex, artist)...)
	}

	var out []*catalog.ArtistCredit
	for i := range parsed {
		p := &parsed[i]
		if p.Artist == nil {
			return nil, fmt.Errorf("parsed credit %q has no artist", p.Credit)
		}
		credit, _, err := r.cat.GetOrCreateCredit(ctx,
			catalog.CreditQuery{
				ArtistID:   p.Artist.ID,
				Credit:     &p.Credit,
				Joinphrase: &p.Joinphrase,
				Index:      &p.Index,
			},
			&catalog.ArtistCredit{
				ArtistID:   p.Artist.ID,
				Credit:     p.Credit,
				Joinphrase: p.Joinphrase,
				Index:      p.Index,
			},
			[]string{"artist", "joinphrase"})
		if err != nil {
			return nil, err
		}
		out = append(out, credit)
	}
	return out, nil
}

func (r *Resolver) getArtist(ctx context.Context, entry ArtistMeta, attributedTo string) (*catalog.Artist, error) {
	query := catalog.ArtistQuery{FID: entry.FID}
	if entry.MBID != "" {
		query.MBID = entry.MBID
	} else {
		query.NameIexact = entry.Name
	}

	artist, _, err := r.cat.GetOrCreateArtist(ctx, query, &catalog.Artist{
		Name:         entry.Name,
		MBID:         entry.MBID,
		FID:          entry.FID,
		FDate:        entry.FDate,
		AttributedTo: attributedTo,
		Description:  entry.Description,
		Tags:         entry.Tags,
	})
	if err != nil {
		return nil, err
	}
	return artist, nil
}

func creditIDs(list []*catalog.ArtistCredit) []string {
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids
}
