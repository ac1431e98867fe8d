package musicbrainz

import (
	"encoding/json"
	"fmt"
)

// Credit is one credited artist on a recording or release.
type Credit struct {
	// Name is the credit text, which can differ from the artist's name.
	Name       string `json:"name"`
	Joinphrase string `json:"joinphrase"`
	Artist     Artist `json:"artist"`
}

// Artist is the artist object nested inside a credit.
type Artist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
}

// Recording is a track-level MusicBrainz object. Its artist-credit
// elements each carry their own trailing joinphrase.
type Recording struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	ArtistCredit []Credit `json:"artist-credit"`
}

// Release is an album-level MusicBrainz object. Its artist-credit is an
// alternating artist/separator sequence: the joinphrase after credit i is
// the next raw element when that element is a bare string.
type Release struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Date         string            `json:"date"`
	ArtistCredit ReleaseCreditList `json:"artist-credit"`
}

// ReleaseCreditList holds the raw alternating sequence of credit objects
// and separator strings from a release payload.
type ReleaseCreditList []ReleaseCreditElement

// ReleaseCreditElement is either a credit object or a separator string.
type ReleaseCreditElement struct {
	Credit    *Credit
	Separator string
}

// IsSeparator reports whether the element is a bare separator string.
func (e ReleaseCreditElement) IsSeparator() bool { return e.Credit == nil }

func (e *ReleaseCreditElement) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.Separator)
	}
	e.Credit = new(Credit)
	if err := json.Unmarshal(data, e.Credit); err != nil {
		return fmt.Errorf("parsing release credit element: %w", err)
	}
	return nil
}

func (e ReleaseCreditElement) MarshalJSON() ([]byte, error) {
	if e.Credit == nil {
		return json.Marshal(e.Separator)
	}
	return json.Marshal(e.Credit)
}
