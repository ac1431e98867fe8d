// Package musicbrainz is a minimal MusicBrainz web service client covering
// recording and release lookups plus Cover Art Archive front images.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/coda-audio/coda/internal/config"
)

const userAgent = "Coda/0.1 (https://github.com/coda-audio/coda)"

// NotFoundError reports that the requested object does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("musicbrainz %s %s not found", e.Kind, e.ID)
}

// ServiceError reports a failed call to the remote service. It is the
// retryable class: callers treat it as transient.
type ServiceError struct {
	Kind  string
	ID    string
	Cause error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("musicbrainz %s %s: %v", e.Kind, e.ID, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

// Client talks to the MusicBrainz web service and the Cover Art Archive.
// All requests share one rate limiter.
type Client struct {
	client       *http.Client
	limiter      *rate.Limiter
	logger       *slog.Logger
	baseURL      string
	coverBaseURL string
}

// New creates a client from configuration.
func New(cfg config.MusicBrainzConfig, logger *slog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:       logger.With(slog.String("component", "musicbrainz")),
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		coverBaseURL: strings.TrimRight(cfg.CoverArtBaseURL, "/"),
	}
}

// GetRecording fetches a recording with its artist credits.
func (c *Client) GetRecording(ctx context.Context, mbid string) (*Recording, error) {
	body, err := c.lookup(ctx, "recording", mbid)
	if err != nil {
		return nil, err
	}

	var rec Recording
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, &ServiceError{Kind: "recording", ID: mbid, Cause: fmt.Errorf("parsing response: %w", err)}
	}
	return &rec, nil
}

// GetRelease fetches a release with its artist credits.
func (c *Client) GetRelease(ctx context.Context, mbid string) (*Release, error) {
	body, err := c.lookup(ctx, "release", mbid)
	if err != nil {
		return nil, err
	}

	var rel Release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, &ServiceError{Kind: "release", ID: mbid, Cause: fmt.Errorf("parsing response: %w", err)}
	}
	return &rel, nil
}

// GetCoverFront fetches the front cover image bytes for a release from the
// Cover Art Archive. Returns the image data and its content type.
func (c *Client) GetCoverFront(ctx context.Context, releaseMBID string) ([]byte, string, error) {
	reqURL := c.coverBaseURL + "/release/" + url.PathEscape(releaseMBID) + "/front"

	resp, err := c.doRequest(ctx, "cover", releaseMBID, reqURL, "")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
	if err != nil {
		return nil, "", &ServiceError{Kind: "cover", ID: releaseMBID, Cause: err}
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) lookup(ctx context.Context, kind, mbid string) ([]byte, error) {
	params := url.Values{
		"inc": {"artists"},
		"fmt": {"json"},
	}
	reqURL := c.baseURL + "/" + kind + "/" + url.PathEscape(mbid) + "?" + params.Encode()

	resp, err := c.doRequest(ctx, kind, mbid, reqURL, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, &ServiceError{Kind: kind, ID: mbid, Cause: err}
	}
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, kind, id, reqURL, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ServiceError{Kind: kind, ID: id, Cause: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	c.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ServiceError{Kind: kind, ID: id, Cause: err}
	}

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, &NotFoundError{Kind: kind, ID: id}
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, &ServiceError{Kind: kind, ID: id, Cause: fmt.Errorf("unexpected HTTP %d", resp.StatusCode)}
	}
	return resp, nil
}
