package federation

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/coda-audio/coda/internal/config"
	"github.com/coda-audio/coda/internal/importer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchDeliversToAllInboxes(t *testing.T) {
	var mu sync.Mutex
	received := map[string][]byte{}

	newInbox := func(name string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Content-Type"); got != "application/activity+json" {
				t.Errorf("content type = %q", got)
			}
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			received[name] = body
			mu.Unlock()
			w.WriteHeader(http.StatusAccepted)
		}))
	}
	a := newInbox("a")
	defer a.Close()
	b := newInbox("b")
	defer b.Close()

	o := NewOutboxWithHTTPClient(config.FederationConfig{
		Domain:      "coda.example",
		PeerInboxes: []string{a.URL, b.URL},
	}, a.Client(), testLogger())

	activity := importer.Activity{Type: "Create", Object: map[string]any{"type": "Audio", "track_id": "t1"}}
	if err := o.Dispatch(context.Background(), activity); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("delivered to %d inboxes, want 2", len(received))
	}
	var doc map[string]any
	if err := json.Unmarshal(received["a"], &doc); err != nil {
		t.Fatal(err)
	}
	if doc["type"] != "Create" {
		t.Errorf("type = %v", doc["type"])
	}
	if doc["@context"] != "https://www.w3.org/ns/activitystreams" {
		t.Errorf("@context = %v", doc["@context"])
	}
	if doc["actor"] != "https://coda.example/federation/actors/service" {
		t.Errorf("actor = %v", doc["actor"])
	}
	obj, ok := doc["object"].(map[string]any)
	if !ok || obj["track_id"] != "t1" {
		t.Errorf("object = %v", doc["object"])
	}
}

func TestDispatchRetriesFailedDelivery(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := NewOutboxWithHTTPClient(config.FederationConfig{PeerInboxes: []string{srv.URL}}, srv.Client(), testLogger())
	if err := o.Dispatch(context.Background(), importer.Activity{Type: "Create"}); err != nil {
		t.Fatalf("Dispatch after retry: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDispatchReportsExhaustedInbox(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := NewOutboxWithHTTPClient(config.FederationConfig{PeerInboxes: []string{srv.URL}}, srv.Client(), testLogger())
	if err := o.Dispatch(context.Background(), importer.Activity{Type: "Create"}); err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
}

func TestDispatchNoInboxesIsNoop(t *testing.T) {
	o := NewOutbox(config.FederationConfig{}, testLogger())
	if err := o.Dispatch(context.Background(), importer.Activity{Type: "Create"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
}
