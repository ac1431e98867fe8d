package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/coda-audio/coda/internal/importer"
)

func TestExtractUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noise.mp3")
	if err := os.WriteFile(path, []byte("not an audio file"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileExtractor().Extract(path)
	var ve *importer.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if ve.Fields["file"] == "" {
		t.Errorf("fields = %v, want a file error", ve.Fields)
	}
}

func TestExtractMissingFile(t *testing.T) {
	_, err := NewFileExtractor().Extract(filepath.Join(t.TempDir(), "absent.flac"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var ve *importer.ValidationError
	if errors.As(err, &ve) {
		t.Error("a missing file is an IO error, not a validation error")
	}
}

func TestInfoReportsSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp3")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := NewFileExtractor().Info(path)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Size != 2048 {
		t.Errorf("size = %d, want 2048", info.Size)
	}
}

func TestSplitTags(t *testing.T) {
	got := splitTags("Rock; Indie,Lo-Fi")
	want := []string{"Rock", "Indie", "Lo-Fi"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
