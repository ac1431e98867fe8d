// Package importer turns pending uploads into resolved catalog entries.
// It normalizes metadata from files, forced values and federation
// payloads, resolves tracks against the catalog and drives the
// per-upload import state machine.
package importer

import (
	"time"

	"github.com/coda-audio/coda/internal/catalog"
)

// Metadata is the normalized shape every metadata source maps into:
// file tags, forced values and federation payloads all produce one of
// these before resolution. Pointer fields distinguish "absent" from the
// zero value.
type Metadata struct {
	Title      string     `json:"title,omitempty"`
	Position   *int       `json:"position,omitempty"`
	DiscNumber *int       `json:"disc_number,omitempty"`
	MBID       string     `json:"mbid,omitempty"`
	FID        string     `json:"fid,omitempty"`
	FDate      *time.Time `json:"fdate,omitempty"`

	License     string     `json:"license,omitempty"`
	Copyright   string     `json:"copyright,omitempty"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	CoverData   *CoverData `json:"cover_data,omitempty"`

	Artists []ArtistMeta `json:"artists,omitempty"`
	Album   *AlbumMeta   `json:"album,omitempty"`

	// TrackUUID is the resolved-track escape hatch: a peer telling us
	// exactly which local track this upload belongs to.
	TrackUUID string `json:"track_uuid,omitempty"`

	// Source is the upload source reference, e.g. a file:// URL. Used
	// for same-directory cover lookups.
	Source string `json:"source,omitempty"`
}

// AlbumMeta is the album section of normalized metadata.
type AlbumMeta struct {
	Title       string       `json:"title,omitempty"`
	MBID        string       `json:"mbid,omitempty"`
	FID         string       `json:"fid,omitempty"`
	FDate       *time.Time   `json:"fdate,omitempty"`
	ReleaseDate string       `json:"release_date,omitempty"`
	Description string       `json:"description,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	CoverData   *CoverData   `json:"cover_data,omitempty"`
	Artists     []ArtistMeta `json:"artists,omitempty"`
}

// ArtistMeta is one artist entry. Credit defaults to Name when empty.
// A nil Joinphrase means the source did not specify one and the parser
// decides.
type ArtistMeta struct {
	Name        string     `json:"name"`
	Credit      string     `json:"credit,omitempty"`
	Joinphrase  *string    `json:"joinphrase,omitempty"`
	MBID        string     `json:"mbid,omitempty"`
	FID         string     `json:"fid,omitempty"`
	FDate       *time.Time `json:"fdate,omitempty"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// CoverData is cover art, either inline bytes or a remote URL.
type CoverData struct {
	MimeType string `json:"mimetype,omitempty"`
	Content  []byte `json:"content,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Info holds technical audio properties populated on finished uploads.
type Info struct {
	Duration int
	Size     int64
	Bitrate  int
}

// ForcedValues are caller-supplied overrides. A set field wins over
// whatever the normalized metadata says, per field.
type ForcedValues struct {
	Title       *string
	Position    *int
	DiscNumber  *int
	MBID        *string
	License     *string
	Copyright   *string
	Description *string
	Tags        []string
	Cover       *CoverData

	// Artist forces the whole track credit list to this single artist.
	// Channel uploads always set it to the channel artist.
	Artist *catalog.Artist

	// Album skips album resolution entirely.
	Album *catalog.Album
}

// Extractor produces normalized metadata and technical info from an
// audio file.
type Extractor interface {
	Extract(path string) (*Metadata, error)
	Info(path string) (Info, error)
}
