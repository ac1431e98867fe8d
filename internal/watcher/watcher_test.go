package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/coda-audio/coda/internal/library"
)

type fakeUploads struct {
	mu      sync.Mutex
	created []*library.Upload
	err     error
}

func (f *fakeUploads) CreateUpload(_ context.Context, u *library.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u.ID = uuid.NewString()
	f.created = append(f.created, u)
	return nil
}

func (f *fakeUploads) all() []*library.Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*library.Upload(nil), f.created...)
}

func (f *fakeUploads) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func newTestService(t *testing.T, dir string) (*Service, *fakeUploads) {
	t.Helper()
	uploads := &fakeUploads{}
	s := NewService(dir, "lib-1", uploads, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.SetSettle(10 * time.Millisecond)
	return s, uploads
}

func TestTrackIgnoresNonAudioFiles(t *testing.T) {
	dir := t.TempDir()
	s, _ := newTestService(t, dir)

	for _, name := range []string{"notes.txt", "cover.jpg", ".hidden.mp3"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		s.track(path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) != 0 {
		t.Errorf("pending = %v, want none", s.pending)
	}
}

func TestEnqueueSettledCreatesUpload(t *testing.T) {
	dir := t.TempDir()
	s, uploads := newTestService(t, dir)

	path := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	s.track(path)
	time.Sleep(20 * time.Millisecond)
	s.enqueueSettled(context.Background())

	got := uploads.all()
	if len(got) != 1 {
		t.Fatalf("created %d uploads, want 1", len(got))
	}
	if got[0].Source != "file://"+path {
		t.Errorf("source = %q", got[0].Source)
	}
	if got[0].LibraryID != "lib-1" {
		t.Errorf("library = %q", got[0].LibraryID)
	}

	// Re-tracking an enqueued file must not produce a second upload.
	s.track(path)
	time.Sleep(20 * time.Millisecond)
	s.enqueueSettled(context.Background())
	if n := len(uploads.all()); n != 1 {
		t.Errorf("created %d uploads after retrack, want 1", n)
	}
}

func TestEnqueueSettledWaitsForStableFile(t *testing.T) {
	dir := t.TempDir()
	s, uploads := newTestService(t, dir)
	s.SetSettle(time.Hour)

	path := filepath.Join(dir, "song.flac")
	if err := os.WriteFile(path, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	s.track(path)
	s.enqueueSettled(context.Background())
	if n := len(uploads.all()); n != 0 {
		t.Errorf("created %d uploads for an unsettled file, want 0", n)
	}
}

func TestEnqueueSettledRetriesAfterCreateFailure(t *testing.T) {
	dir := t.TempDir()
	s, uploads := newTestService(t, dir)

	path := filepath.Join(dir, "song.ogg")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	uploads.setErr(os.ErrPermission)
	s.track(path)
	time.Sleep(20 * time.Millisecond)
	s.enqueueSettled(context.Background())
	if n := len(uploads.all()); n != 0 {
		t.Fatalf("created %d uploads, want 0 while store fails", n)
	}

	// The file stays eligible once the store recovers.
	uploads.setErr(nil)
	s.track(path)
	time.Sleep(20 * time.Millisecond)
	s.enqueueSettled(context.Background())
	if n := len(uploads.all()); n != 1 {
		t.Errorf("created %d uploads after recovery, want 1", n)
	}
}

func TestStartPicksUpDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	s, uploads := newTestService(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "existing.mp3"), []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(ctx)
	}()

	if err := os.WriteFile(filepath.Join(dir, "dropped.flac"), []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got := uploads.all()
		if len(got) == 2 {
			sources := make([]string, 0, 2)
			for _, u := range got {
				sources = append(sources, u.Source)
			}
			joined := strings.Join(sources, " ")
			if !strings.Contains(joined, "existing.mp3") || !strings.Contains(joined, "dropped.flac") {
				t.Errorf("sources = %v", sources)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("uploads = %d, want 2 within deadline", len(got))
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
