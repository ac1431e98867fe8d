package importer

import (
	"testing"
)

func TestMergeLayersFirstWins(t *testing.T) {
	pos2, pos9 := 2, 9
	base := &Metadata{Source: "file:///music/a.mp3", Position: &pos2}
	override := &Metadata{Title: "Override", MBID: "rec-override"}
	file := &Metadata{
		Title:    "From File",
		Position: &pos9,
		MBID:     "rec-file",
		Album:    &AlbumMeta{Title: "File Album"},
		Artists:  []ArtistMeta{{Name: "File Artist"}},
	}

	got := MergeLayers(base, override, file)
	if got.Title != "Override" {
		t.Errorf("title = %q, want the earlier layer's value", got.Title)
	}
	if got.MBID != "rec-override" {
		t.Errorf("mbid = %q", got.MBID)
	}
	if got.Position == nil || *got.Position != 2 {
		t.Errorf("position = %v, want 2", got.Position)
	}
	if got.Source != "file:///music/a.mp3" {
		t.Errorf("source = %q", got.Source)
	}
	if got.Album == nil || got.Album.Title != "File Album" {
		t.Errorf("album = %+v, want the file layer's album", got.Album)
	}
	if len(got.Artists) != 1 || got.Artists[0].Name != "File Artist" {
		t.Errorf("artists = %+v", got.Artists)
	}
}

func TestMergeLayersCompoundFieldsWinWhole(t *testing.T) {
	first := &Metadata{Album: &AlbumMeta{Title: "First"}}
	second := &Metadata{Album: &AlbumMeta{Title: "Second", MBID: "rel-2"}}

	got := MergeLayers(first, second)
	if got.Album.Title != "First" || got.Album.MBID != "" {
		t.Errorf("album = %+v, compound fields must never merge field by field", got.Album)
	}
}

func TestMergeLayersSkipsNil(t *testing.T) {
	got := MergeLayers(nil, &Metadata{Title: "Only"}, nil)
	if got.Title != "Only" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestParseUploadMetadataDefaults(t *testing.T) {
	for _, raw := range []string{"", "{}"} {
		m, err := ParseUploadMetadata(raw)
		if err != nil {
			t.Fatalf("ParseUploadMetadata(%q): %v", raw, err)
		}
		if m.Config == nil || !m.Config.Broadcast || !m.Config.DispatchOutbox {
			t.Errorf("config for %q = %+v, want broadcast and outbox enabled", raw, m.Config)
		}
	}
}

func TestParseUploadMetadataExplicitConfig(t *testing.T) {
	m, err := ParseUploadMetadata(`{"config": {"broadcast": false, "dispatch_outbox": false}, "title": "T"}`)
	if err != nil {
		t.Fatal(err)
	}
	if m.Config.Broadcast || m.Config.DispatchOutbox {
		t.Errorf("config = %+v, want both disabled", m.Config)
	}
	if m.Title == nil || *m.Title != "T" {
		t.Errorf("title = %v", m.Title)
	}
}

func TestParseUploadMetadataPartialConfig(t *testing.T) {
	m, err := ParseUploadMetadata(`{"config": {"broadcast": true}}`)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Config.DispatchOutbox {
		t.Error("outbox dispatch must stay enabled when the config does not mention it")
	}

	m, err = ParseUploadMetadata(`{"config": {"dispatch_outbox": false}}`)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Config.Broadcast {
		t.Error("broadcasting must stay enabled when the config does not mention it")
	}
	if m.Config.DispatchOutbox {
		t.Error("an explicit false must win")
	}
}

func TestParseUploadMetadataRejectsGarbage(t *testing.T) {
	if _, err := ParseUploadMetadata("not json"); err == nil {
		t.Error("expected an error for malformed metadata")
	}
}

func TestMetadataFromForced(t *testing.T) {
	title := "Episode 1"
	license := "cc0"
	got := metadataFromForced(ForcedValues{
		Title:   &title,
		License: &license,
		Tags:    []string{"podcast"},
	})
	if got.Title != "Episode 1" || got.License != "cc0" {
		t.Errorf("got %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "podcast" {
		t.Errorf("tags = %v", got.Tags)
	}
	if got.Position != nil || got.Album != nil {
		t.Errorf("unset fields must stay unset: %+v", got)
	}
}
