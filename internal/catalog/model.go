package catalog

import "time"

// Artist is a canonical catalog artist. MBID and FID are empty when unknown;
// identity precedence for matching is MBID > FID > case-insensitive name.
type Artist struct {
	ID           string
	Name         string
	MBID         string
	FID          string
	FDate        *time.Time
	AttributedTo string
	Description  string
	Tags         []string
	CoverID      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdentityField returns the value of a named identity field, or "" when the
// entity has no such field. Unknown names scoring zero is relied upon by
// the candidate scorer.
func (a *Artist) IdentityField(name string) string {
	switch name {
	case "mbid":
		return a.MBID
	case "fid":
		return a.FID
	case "name":
		return a.Name
	}
	return ""
}

// ArtistCredit joins an Artist to a Track or Album. Credit is the display
// text (may differ from the artist's canonical name), Joinphrase the text
// rendered between this credit and the next, Index the stable ordering
// position. Concatenating credit+joinphrase in index order reproduces the
// human-readable artist string.
type ArtistCredit struct {
	ID         string
	ArtistID   string
	Credit     string
	Joinphrase string
	Index      int
	CreatedAt  time.Time
}

// IdentityField implements the scorer candidate interface. ArtistCredit has
// no mbid/fid columns; those names score zero here, which keeps candidate
// ordering stable when callers score credits on them.
func (c *ArtistCredit) IdentityField(name string) string {
	switch name {
	case "artist":
		return c.ArtistID
	case "credit":
		return c.Credit
	case "joinphrase":
		return c.Joinphrase
	}
	return ""
}

// Album is a canonical catalog album. Identity precedence is MBID > FID >
// (case-insensitive title, artist-credit set).
type Album struct {
	ID           string
	Title        string
	MBID         string
	FID          string
	FDate        *time.Time
	ReleaseDate  string
	AttributedTo string
	Description  string
	Tags         []string
	CoverID      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdentityField returns the value of a named identity field.
func (a *Album) IdentityField(name string) string {
	switch name {
	case "mbid":
		return a.MBID
	case "fid":
		return a.FID
	case "title":
		return a.Title
	}
	return ""
}

// Track is a canonical catalog track. AlbumID is empty for albumless
// tracks. Identity precedence is FID > (MBID, album MBID) > the fuzzy
// (title, credits, album, position, disc number) tuple.
type Track struct {
	ID           string
	Title        string
	AlbumID      string
	MBID         string
	FID          string
	FDate        *time.Time
	Position     int
	DiscNumber   *int
	License      string
	Copyright    string
	AttributedTo string
	Description  string
	Tags         []string
	CoverID      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdentityField returns the value of a named identity field.
func (t *Track) IdentityField(name string) string {
	switch name {
	case "mbid":
		return t.MBID
	case "fid":
		return t.FID
	case "title":
		return t.Title
	}
	return ""
}

// Attachment is stored binary content (covers) with an optional origin URL
// and a downscaled thumbnail.
type Attachment struct {
	ID        string
	Mimetype  string
	URL       string
	Content   []byte
	Thumbnail []byte
	CreatedAt time.Time
}
