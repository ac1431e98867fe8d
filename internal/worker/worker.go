// Package worker schedules pending uploads onto the import processor.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coda-audio/coda/internal/config"
	"github.com/coda-audio/coda/internal/event"
	"github.com/coda-audio/coda/internal/importer"
	"github.com/coda-audio/coda/internal/library"
)

const claimBatchSize = 20

// Worker polls for claimable uploads and runs each one through the
// processor. Stale claims left behind by a crashed run are released
// after the configured TTL so no upload is stranded.
type Worker struct {
	store        *library.Store
	processor    *importer.Processor
	logger       *slog.Logger
	pollInterval time.Duration
	claimTTL     time.Duration

	kick chan struct{}
}

// New creates a worker with the given scheduling config.
func New(store *library.Store, processor *importer.Processor, cfg config.WorkerConfig, logger *slog.Logger) *Worker {
	return &Worker{
		store:        store,
		processor:    processor,
		logger:       logger.With(slog.String("component", "worker")),
		pollInterval: cfg.PollInterval,
		claimTTL:     cfg.ClaimTTL,
		kick:         make(chan struct{}, 1),
	}
}

// HandleUploadCreated is an event handler that wakes the worker as soon
// as a new upload lands, ahead of the next poll tick.
func (w *Worker) HandleUploadCreated(event.Event) {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Start runs the scheduling loop until the context is canceled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("import worker started",
		slog.String("poll_interval", w.pollInterval.String()),
		slog.String("claim_ttl", w.claimTTL.String()))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("import worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.kick:
			w.runOnce(ctx)
		}
	}
}

// runOnce releases stale claims and drains the claimable backlog.
func (w *Worker) runOnce(ctx context.Context) {
	released, err := w.store.ReclaimStale(ctx, w.claimTTL)
	if err != nil {
		w.logger.Error("releasing stale claims failed", slog.Any("error", err))
	} else if released > 0 {
		w.logger.Warn("released stale upload claims", slog.Int64("count", released))
	}

	for {
		ids, err := w.store.ListClaimable(ctx, claimBatchSize)
		if err != nil {
			w.logger.Error("listing claimable uploads failed", slog.Any("error", err))
			return
		}
		if len(ids) == 0 {
			return
		}

		for _, id := range ids {
			if ctx.Err() != nil {
				return
			}
			if err := w.processor.Process(ctx, id); err != nil {
				// Losing the claim race is routine when several workers
				// share the queue.
				if errors.Is(err, importer.ErrNotPending) {
					continue
				}
				w.logger.Error("processing upload failed",
					slog.String("upload_id", id), slog.Any("error", err))
			}
		}
	}
}
