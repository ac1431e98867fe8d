// Package audio extracts normalized metadata and technical info from
// audio files on disk.
package audio

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"github.com/coda-audio/coda/internal/importer"
)

// FileExtractor reads tags from local audio files.
type FileExtractor struct{}

// NewFileExtractor creates a file-based extractor.
func NewFileExtractor() *FileExtractor { return &FileExtractor{} }

// Extract reads the file's tags into the normalized metadata shape.
// Returns *importer.ValidationError when required fields are missing.
func (e *FileExtractor) Extract(path string) (*importer.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	t, err := tag.ReadFrom(f)
	if err != nil {
		return nil, &importer.ValidationError{
			Fields: map[string]string{"file": fmt.Sprintf("unreadable tags: %v", err)},
		}
	}

	m := &importer.Metadata{
		Title:     t.Title(),
		MBID:      rawString(t, "musicbrainz_trackid", "MusicBrainz Track Id"),
		License:   rawString(t, "license", "LICENSE"),
		Copyright: rawString(t, "copyright", "TCOP"),
		Source:    "file://" + path,
	}
	if pos, _ := t.Track(); pos > 0 {
		m.Position = &pos
	}
	if disc, _ := t.Disc(); disc > 0 {
		m.DiscNumber = &disc
	}
	if genre := t.Genre(); genre != "" {
		m.Tags = splitTags(genre)
	}
	if lyrics := t.Lyrics(); lyrics != "" {
		m.Description = lyrics
	}
	if pic := t.Picture(); pic != nil && len(pic.Data) > 0 {
		m.CoverData = &importer.CoverData{MimeType: pic.MIMEType, Content: pic.Data}
	}

	if artist := t.Artist(); artist != "" {
		m.Artists = []importer.ArtistMeta{{
			Name: artist,
			MBID: rawString(t, "musicbrainz_artistid", "MusicBrainz Artist Id"),
		}}
	}

	if album := t.Album(); album != "" {
		albumMeta := &importer.AlbumMeta{
			Title: album,
			MBID:  rawString(t, "musicbrainz_albumid", "MusicBrainz Album Id"),
		}
		if year := t.Year(); year > 0 {
			albumMeta.ReleaseDate = strconv.Itoa(year)
		}
		if albumArtist := t.AlbumArtist(); albumArtist != "" {
			albumMeta.Artists = []importer.ArtistMeta{{
				Name: albumArtist,
				MBID: rawString(t, "musicbrainz_albumartistid", "MusicBrainz Album Artist Id"),
			}}
		}
		m.Album = albumMeta
	}

	if errs := validate(m); len(errs) > 0 {
		return nil, &importer.ValidationError{Fields: errs, Raw: dump(t)}
	}
	return m, nil
}

// Info returns technical properties. Size always comes from the file;
// duration is read from the tags when present, bitrate is derived from
// both when possible.
func (e *FileExtractor) Info(path string) (importer.Info, error) {
	var info importer.Info

	st, err := os.Stat(path)
	if err != nil {
		return info, fmt.Errorf("stating audio file: %w", err)
	}
	info.Size = st.Size()

	f, err := os.Open(path)
	if err != nil {
		return info, fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	t, err := tag.ReadFrom(f)
	if err != nil {
		return info, nil
	}
	if lengthMS := rawString(t, "length", "TLEN"); lengthMS != "" {
		if ms, err := strconv.Atoi(lengthMS); err == nil && ms > 0 {
			info.Duration = ms / 1000
		}
	}
	if info.Duration > 0 {
		info.Bitrate = int(info.Size * 8 / int64(info.Duration))
	}
	return info, nil
}

func validate(m *importer.Metadata) map[string]string {
	errs := make(map[string]string)
	if m.Title == "" {
		errs["title"] = "this field is required"
	}
	if len(m.Artists) == 0 {
		errs["artists"] = "at least one artist is required"
	}
	if m.Album == nil || m.Album.Title == "" {
		errs["album"] = "an album title is required"
	}
	return errs
}

// rawString looks up the first matching raw tag key, tolerating the
// different key spellings of vorbis comments and ID3 frames.
func rawString(t tag.Metadata, keys ...string) string {
	raw := t.Raw()
	for _, key := range keys {
		for _, candidate := range []string{key, strings.ToUpper(key), strings.ToLower(key)} {
			if v, ok := raw[candidate]; ok {
				if s, ok := v.(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func splitTags(genre string) []string {
	parts := strings.FieldsFunc(genre, func(r rune) bool { return r == ';' || r == ',' })
	var tags []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func dump(t tag.Metadata) map[string]any {
	out := map[string]any{
		"format":   string(t.Format()),
		"filetype": string(t.FileType()),
		"title":    t.Title(),
		"artist":   t.Artist(),
		"album":    t.Album(),
	}
	for k, v := range t.Raw() {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

