package importer

import (
	"context"

	"github.com/coda-audio/coda/internal/catalog"
	"github.com/coda-audio/coda/internal/musicbrainz"
)

// MBClient is the slice of the MusicBrainz client the importer uses.
type MBClient interface {
	GetRecording(ctx context.Context, mbid string) (*musicbrainz.Recording, error)
	GetRelease(ctx context.Context, mbid string) (*musicbrainz.Release, error)
	GetCoverFront(ctx context.Context, releaseMBID string) ([]byte, string, error)
}

// creditsFromMusicBrainz builds artist credits from the remote service's
// credit list for a recording or release. Recording credits carry their
// own joinphrase; release credits alternate with separator strings and
// take the joinphrase from the following raw element. The credit index
// is the element's position in the raw list, separators included, which
// keeps ordering stable either way.
func (r *Resolver) creditsFromMusicBrainz(ctx context.Context, kind, mbid, attributedTo string) ([]*catalog.ArtistCredit, error) {
	type element struct {
		credit     *musicbrainz.Credit
		joinphrase string
	}
	var elements []element

	switch kind {
	case "release":
		rel, err := r.mb.GetRelease(ctx, mbid)
		if err != nil {
			return nil, err
		}
		raw := rel.ArtistCredit
		for i := range raw {
			if raw[i].IsSeparator() {
				elements = append(elements, element{})
				continue
			}
			joinphrase := ""
			if i+1 < len(raw) && raw[i+1].IsSeparator() {
				joinphrase = raw[i+1].Separator
			}
			elements = append(elements, element{credit: raw[i].Credit, joinphrase: joinphrase})
		}
	default:
		rec, err := r.mb.GetRecording(ctx, mbid)
		if err != nil {
			return nil, err
		}
		for i := range rec.ArtistCredit {
			ac := &rec.ArtistCredit[i]
			elements = append(elements, element{credit: ac, joinphrase: ac.Joinphrase})
		}
	}

	var out []*catalog.ArtistCredit
	for i, el := range elements {
		if el.credit == nil {
			continue
		}
		creditText := el.credit.Name
		if creditText == "" {
			creditText = el.credit.Artist.Name
		}

		artist, _, err := r.cat.GetOrCreateArtist(ctx,
			catalog.ArtistQuery{MBID: el.credit.Artist.ID},
			&catalog.Artist{
				Name:         el.credit.Artist.Name,
				MBID:         el.credit.Artist.ID,
				AttributedTo: attributedTo,
			})
		if err != nil {
			return nil, err
		}

		index := i
		credit, _, err := r.cat.GetOrCreateCredit(ctx,
			catalog.CreditQuery{
				ArtistID:   artist.ID,
				Credit:     &creditText,
				Joinphrase: &el.joinphrase,
				Index:      &index,
			},
			&catalog.ArtistCredit{
				ArtistID:   artist.ID,
				Credit:     creditText,
				Joinphrase: el.joinphrase,
				Index:      index,
			},
			[]string{"mbid", "fid"})
		if err != nil {
			return nil, err
		}
		out = append(out, credit)
	}
	return out, nil
}
