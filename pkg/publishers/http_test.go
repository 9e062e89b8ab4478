package publishers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func newTestHTTPPublisher(t *testing.T, url string, headers map[string]string) Publisher {
	t.Helper()
	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{
			URL:            url,
			Method:         http.MethodPut,
			Headers:        headers,
			TimeoutSeconds: 2,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}
	return pub
}

func TestHTTPPublisherDeliversBreweryEvent(t *testing.T) {
	evt := testEvent()

	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if h := r.Header.Get("Authorization"); h != "Bearer token" {
			t.Errorf("missing configured header, got %q", h)
		}
		if h := r.Header.Get(headerEventID); h != evt.ID {
			t.Errorf("event id header = %q, want %q", h, evt.ID)
		}
		if h := r.Header.Get(headerState); h != "colorado" {
			t.Errorf("state header = %q", h)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pub := newTestHTTPPublisher(t, srv.URL, map[string]string{"Authorization": "Bearer token"})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got.ID != evt.ID || !got.Brewery.Equal(evt.Brewery) {
		t.Fatalf("server received %+v, want %+v", got, evt)
	}
}

func TestHTTPPublisherErrorIncludesResponseSnippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	pub := newTestHTTPPublisher(t, srv.URL, nil)
	err := pub.Publish(context.Background(), testEvent())
	if err == nil {
		t.Fatalf("expected error on 503")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "queue full") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestHTTPPublisherRequiresConfig(t *testing.T) {
	if _, err := newHTTPPublisher(context.Background(), PublisherConfig{ID: "hook", Type: TypeHTTP}, nil); err == nil {
		t.Fatalf("expected error without http block")
	}
}

func TestReadBodySnippetTruncates(t *testing.T) {
	long := strings.Repeat("x", 600)
	if got := readBodySnippet([]byte(long)); len(got) != 512 {
		t.Fatalf("expected 512 byte snippet, got %d", len(got))
	}
	if got := readBodySnippet(nil); got != "" {
		t.Fatalf("expected empty snippet, got %q", got)
	}
}
