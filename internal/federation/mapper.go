// Package federation maps ActivityPub audio payloads into normalized
// import metadata and delivers outgoing activities to peer inboxes.
package federation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/coda-audio/coda/internal/importer"
)

// Image is a remote image reference. Peers disagree on whether the
// location lives under "url" or "href".
type Image struct {
	URL       string `json:"url,omitempty"`
	Href      string `json:"href,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

// Tag is a named tag on a federated object.
type Tag struct {
	Name string `json:"name"`
}

// ArtistPayload is the artist object inside a credit entry.
type ArtistPayload struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Published     *time.Time `json:"published,omitempty"`
	MusicbrainzID string     `json:"musicbrainzId,omitempty"`
	Description   string     `json:"description,omitempty"`
	Image         *Image     `json:"image,omitempty"`
	Tags          []Tag      `json:"tags,omitempty"`
}

// CreditPayload is one entry of a federated artist credit list. A
// missing joinphrase means empty, not parser-decided: peers always send
// the full credit structure.
type CreditPayload struct {
	Artist     ArtistPayload `json:"artist"`
	Joinphrase string        `json:"joinphrase"`
	Credit     string        `json:"credit,omitempty"`
}

// AlbumPayload is the album object embedded in a track payload.
type AlbumPayload struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Published     *time.Time      `json:"published,omitempty"`
	Released      string          `json:"released,omitempty"`
	MusicbrainzID string          `json:"musicbrainzId,omitempty"`
	Description   string          `json:"description,omitempty"`
	Image         *Image          `json:"image,omitempty"`
	Tags          []Tag           `json:"tags,omitempty"`
	ArtistCredit  []CreditPayload `json:"artist_credit"`
}

// TrackPayload is a federated Track object as sent by a peer.
type TrackPayload struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Name          string          `json:"name"`
	Published     *time.Time      `json:"published,omitempty"`
	Position      *int            `json:"position,omitempty"`
	Disc          *int            `json:"disc,omitempty"`
	License       string          `json:"license,omitempty"`
	Copyright     string          `json:"copyright,omitempty"`
	Description   string          `json:"description,omitempty"`
	MusicbrainzID string          `json:"musicbrainzId,omitempty"`
	Image         *Image          `json:"image,omitempty"`
	Tags          []Tag           `json:"tags,omitempty"`
	Album         *AlbumPayload   `json:"album"`
	ArtistCredit  []CreditPayload `json:"artist_credit"`
}

// ParseTrackPayload decodes a raw federated track object.
func ParseTrackPayload(raw []byte) (*TrackPayload, error) {
	var p TrackPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parsing track payload: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("track payload has no id")
	}
	if p.Name == "" {
		return nil, fmt.Errorf("track payload has no name")
	}
	return &p, nil
}

// TrackToMetadata maps a federated track payload into normalized import
// metadata. The payload's object ids become federation ids; a missing
// position defaults to 1.
func TrackToMetadata(p *TrackPayload) *importer.Metadata {
	position := 1
	if p.Position != nil && *p.Position != 0 {
		position = *p.Position
	}

	meta := &importer.Metadata{
		Title:       p.Name,
		Position:    &position,
		DiscNumber:  p.Disc,
		MBID:        p.MusicbrainzID,
		FID:         p.ID,
		FDate:       p.Published,
		License:     p.License,
		Copyright:   p.Copyright,
		Description: p.Description,
		Tags:        tagNames(p.Tags),
		CoverData:   coverFromImage(p.Image),
		Artists:     creditEntries(p.ArtistCredit),
	}

	if p.Album != nil {
		meta.Album = &importer.AlbumMeta{
			Title:       p.Album.Name,
			MBID:        p.Album.MusicbrainzID,
			FID:         p.Album.ID,
			FDate:       p.Album.Published,
			ReleaseDate: p.Album.Released,
			Description: p.Album.Description,
			Tags:        tagNames(p.Album.Tags),
			CoverData:   coverFromImage(p.Album.Image),
			Artists:     creditEntries(p.Album.ArtistCredit),
		}
	}
	return meta
}

func creditEntries(list []CreditPayload) []importer.ArtistMeta {
	var out []importer.ArtistMeta
	for _, c := range list {
		joinphrase := c.Joinphrase
		creditText := c.Credit
		if creditText == "" {
			creditText = c.Artist.Name
		}
		out = append(out, importer.ArtistMeta{
			Name:        c.Artist.Name,
			Credit:      creditText,
			Joinphrase:  &joinphrase,
			MBID:        c.Artist.MusicbrainzID,
			FID:         c.Artist.ID,
			FDate:       c.Artist.Published,
			Description: c.Artist.Description,
			Tags:        tagNames(c.Artist.Tags),
		})
	}
	return out
}

func coverFromImage(img *Image) *importer.CoverData {
	if img == nil {
		return nil
	}
	url := img.URL
	if url == "" {
		url = img.Href
	}
	if url == "" {
		return nil
	}
	return &importer.CoverData{MimeType: img.MediaType, URL: url}
}

func tagNames(tags []Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Name)
	}
	return out
}
