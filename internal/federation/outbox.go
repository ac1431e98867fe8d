package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coda-audio/coda/internal/config"
	"github.com/coda-audio/coda/internal/importer"
)

const (
	maxDeliveryRetries = 3
	requestTimeout     = 10 * time.Second
	contentType        = "application/activity+json"
)

// Outbox delivers activities to the configured peer inboxes.
type Outbox struct {
	domain     string
	inboxes    []string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOutbox creates an outbox for the given federation config.
func NewOutbox(cfg config.FederationConfig, logger *slog.Logger) *Outbox {
	return &Outbox{
		domain:     cfg.Domain,
		inboxes:    cfg.PeerInboxes,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger.With(slog.String("component", "outbox")),
	}
}

// NewOutboxWithHTTPClient creates an outbox with a custom HTTP client (for testing).
func NewOutboxWithHTTPClient(cfg config.FederationConfig, httpClient *http.Client, logger *slog.Logger) *Outbox {
	o := NewOutbox(cfg, logger)
	o.httpClient = httpClient
	return o
}

// Dispatch posts the activity to every configured peer inbox. Delivery
// failures per inbox are retried with backoff; the joined error of the
// inboxes that stayed unreachable is returned.
func (o *Outbox) Dispatch(ctx context.Context, a importer.Activity) error {
	if len(o.inboxes) == 0 {
		return nil
	}

	body, err := json.Marshal(envelope(o.domain, a))
	if err != nil {
		return fmt.Errorf("encoding activity: %w", err)
	}

	var failed []error
	for _, inbox := range o.inboxes {
		if err := o.deliver(ctx, inbox, a, body); err != nil {
			failed = append(failed, fmt.Errorf("delivering to %s: %w", inbox, err))
		}
	}
	return errors.Join(failed...)
}

func (o *Outbox) deliver(ctx context.Context, inbox string, a importer.Activity, body []byte) error {
	var lastErr error
	for attempt := 0; attempt < maxDeliveryRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = o.send(ctx, inbox, body)
		if lastErr == nil {
			o.logger.Debug("activity delivered",
				"inbox", inbox,
				"type", a.Type,
				"attempt", attempt+1,
			)
			return nil
		}

		o.logger.Warn("activity delivery failed",
			"inbox", inbox,
			"type", a.Type,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}
	return lastErr
}

func (o *Outbox) send(ctx context.Context, inbox string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, inbox, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", "Coda/0.1 (https://github.com/coda-audio/coda)")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func envelope(domain string, a importer.Activity) map[string]any {
	doc := map[string]any{
		"@context": "https://www.w3.org/ns/activitystreams",
		"type":     a.Type,
		"object":   a.Object,
	}
	if domain != "" {
		doc["actor"] = fmt.Sprintf("https://%s/federation/actors/service", domain)
	}
	return doc
}
