package importer

import "encoding/json"

// InternalConfig is the per-upload configuration carried inside the
// upload's import metadata. Each toggle defaults to true independently:
// a config that only sets one key leaves the others enabled.
type InternalConfig struct {
	Broadcast      bool   `json:"broadcast"`
	DispatchOutbox bool   `json:"dispatch_outbox"`
	TrackUUID      string `json:"track_uuid,omitempty"`
}

// DefaultInternalConfig returns the config applied when an upload
// carries none.
func DefaultInternalConfig() InternalConfig {
	return InternalConfig{Broadcast: true, DispatchOutbox: true}
}

// UnmarshalJSON seeds the toggles with their defaults before decoding,
// so keys absent from a partial config stay enabled rather than
// zero-valued off.
func (c *InternalConfig) UnmarshalJSON(data []byte) error {
	type plain InternalConfig
	p := plain(DefaultInternalConfig())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = InternalConfig(p)
	return nil
}

// MergeLayers stacks metadata layers with first-wins semantics: for each
// field, the first layer that defines it supplies the value and later
// layers are ignored for that field. Compound fields (Album, CoverData,
// Artists, Tags) win whole, never merged field by field. Nil layers are
// skipped.
func MergeLayers(layers ...*Metadata) *Metadata {
	out := &Metadata{}
	for _, l := range layers {
		if l == nil {
			continue
		}
		if out.Title == "" {
			out.Title = l.Title
		}
		if out.Position == nil {
			out.Position = l.Position
		}
		if out.DiscNumber == nil {
			out.DiscNumber = l.DiscNumber
		}
		if out.MBID == "" {
			out.MBID = l.MBID
		}
		if out.FID == "" {
			out.FID = l.FID
		}
		if out.FDate == nil {
			out.FDate = l.FDate
		}
		if out.License == "" {
			out.License = l.License
		}
		if out.Copyright == "" {
			out.Copyright = l.Copyright
		}
		if out.Description == "" {
			out.Description = l.Description
		}
		if out.Tags == nil {
			out.Tags = l.Tags
		}
		if out.CoverData == nil {
			out.CoverData = l.CoverData
		}
		if out.Artists == nil {
			out.Artists = l.Artists
		}
		if out.Album == nil {
			out.Album = l.Album
		}
		if out.TrackUUID == "" {
			out.TrackUUID = l.TrackUUID
		}
		if out.Source == "" {
			out.Source = l.Source
		}
	}
	return out
}

// metadataFromForced renders forced values as a metadata layer, used for
// channel uploads where file tags are ignored entirely.
func metadataFromForced(f ForcedValues) *Metadata {
	m := &Metadata{}
	if f.Title != nil {
		m.Title = *f.Title
	}
	if f.Position != nil {
		m.Position = f.Position
	}
	if f.DiscNumber != nil {
		m.DiscNumber = f.DiscNumber
	}
	if f.MBID != nil {
		m.MBID = *f.MBID
	}
	if f.License != nil {
		m.License = *f.License
	}
	if f.Copyright != nil {
		m.Copyright = *f.Copyright
	}
	if f.Description != nil {
		m.Description = *f.Description
	}
	m.Tags = f.Tags
	m.CoverData = f.Cover
	return m
}
