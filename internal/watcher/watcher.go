// Package watcher observes the import directory and turns audio files
// dropped there into pending uploads.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/coda-audio/coda/internal/event"
	"github.com/coda-audio/coda/internal/library"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".m4a":  true,
	".aac":  true,
	".wav":  true,
	".aif":  true,
	".aiff": true,
}

// UploadCreator persists new uploads. Satisfied by library.Store.
type UploadCreator interface {
	CreateUpload(ctx context.Context, u *library.Upload) error
}

// Service watches the import directory for new audio files and creates a
// pending upload in the target library for each one. Files are enqueued
// only once their size has been stable for the settle interval, so
// half-copied files never enter the pipeline.
type Service struct {
	path      string
	libraryID string
	uploads   UploadCreator
	eventBus  *event.Bus
	logger    *slog.Logger
	settle    time.Duration

	mu      sync.Mutex
	pending map[string]pendingFile // path -> last observed state
	seen    map[string]bool        // paths already enqueued
}

type pendingFile struct {
	size    int64
	lastMod time.Time
	since   time.Time
}

// NewService creates a watcher for the given import directory. Created
// uploads land in the library identified by libraryID.
func NewService(path, libraryID string, uploads UploadCreator, eventBus *event.Bus, logger *slog.Logger) *Service {
	return &Service{
		path:      path,
		libraryID: libraryID,
		uploads:   uploads,
		eventBus:  eventBus,
		logger:    logger.With("component", "import-watcher"),
		settle:    2 * time.Second,
		pending:   make(map[string]pendingFile),
		seen:      make(map[string]bool),
	}
}

// SetSettle overrides the default settle interval (for testing).
func (s *Service) SetSettle(d time.Duration) {
	s.settle = d
}

// Start blocks until ctx is canceled. Existing files in the import
// directory are picked up on startup; new ones arrive through fsnotify
// when the filesystem supports it, with a periodic rescan covering the
// rest.
func (s *Service) Start(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, running poll-only", "error", err)
	} else {
		defer w.Close() //nolint:errcheck
		if err := w.Add(s.path); err != nil {
			s.logger.Warn("watching import path failed, running poll-only",
				"path", s.path, "error", err)
			w.Close() //nolint:errcheck
			w = nil
		}
	}

	s.scanDirectory()
	s.logger.Info("import watcher starting", "path", s.path)

	settleTicker := time.NewTicker(s.settle)
	defer settleTicker.Stop()

	rescanTicker := time.NewTicker(1 * time.Minute)
	defer rescanTicker.Stop()

	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if w != nil {
		eventCh = w.Events
		errCh = w.Errors
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("import watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				s.track(ev.Name)
			}

		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-settleTicker.C:
			s.enqueueSettled(ctx)

		case <-rescanTicker.C:
			s.scanDirectory()
		}
	}
}

// scanDirectory tracks every audio file currently in the import path.
func (s *Service) scanDirectory() {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		s.logger.Error("reading import directory", "path", s.path, "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		s.track(filepath.Join(s.path, e.Name()))
	}
}

// track records a file for settle checking. Non-audio files and files
// already enqueued are ignored.
func (s *Service) track(path string) {
	if !audioExtensions[strings.ToLower(filepath.Ext(path))] {
		return
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[path] {
		return
	}
	prev, tracked := s.pending[path]
	if tracked && prev.size == info.Size() && prev.lastMod.Equal(info.ModTime()) {
		return
	}
	s.pending[path] = pendingFile{size: info.Size(), lastMod: info.ModTime(), since: time.Now()}
}

// enqueueSettled creates uploads for tracked files whose size and mtime
// held still for a full settle interval.
func (s *Service) enqueueSettled(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	var ready []string
	for path, pf := range s.pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(s.pending, path)
			continue
		}
		if info.Size() != pf.size || !info.ModTime().Equal(pf.lastMod) {
			s.pending[path] = pendingFile{size: info.Size(), lastMod: info.ModTime(), since: now}
			continue
		}
		if now.Sub(pf.since) >= s.settle {
			ready = append(ready, path)
			delete(s.pending, path)
			s.seen[path] = true
		}
	}
	s.mu.Unlock()

	for _, path := range ready {
		upload := &library.Upload{
			LibraryID: s.libraryID,
			Source:    "file://" + path,
		}
		if err := s.uploads.CreateUpload(ctx, upload); err != nil {
			s.logger.Error("creating upload for import file",
				"path", path, "error", err)
			s.mu.Lock()
			delete(s.seen, path)
			s.mu.Unlock()
			continue
		}

		s.logger.Info("import file enqueued",
			"path", path, "upload_id", upload.ID)

		if s.eventBus != nil {
			s.eventBus.Publish(event.Event{
				Type: event.UploadCreated,
				Data: map[string]any{
					"upload_id": upload.ID,
					"path":      path,
				},
			})
		}
	}
}
