package importer

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCoverFromDirectoryPrefersCoverOverFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "folder.jpg"), []byte("folder-bytes"))
	writeFile(t, filepath.Join(dir, "cover.png"), []byte("cover-bytes"))

	got, err := coverFromDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected a cover")
	}
	if string(got.Content) != "cover-bytes" {
		t.Errorf("content = %q, want the cover file", got.Content)
	}
	if got.MimeType != "image/png" {
		t.Errorf("mimetype = %q, want image/png", got.MimeType)
	}
}

func TestCoverFromDirectoryExtensionOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cover.png"), []byte("png-bytes"))
	writeFile(t, filepath.Join(dir, "cover.jpg"), []byte("jpg-bytes"))

	got, err := coverFromDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.MimeType != "image/jpeg" {
		t.Fatalf("got %+v, want the jpg variant first", got)
	}
}

func TestCoverFromDirectoryEmpty(t *testing.T) {
	got, err := coverFromDirectory(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for a directory without covers", got)
	}
}
