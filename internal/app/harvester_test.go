package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/brewdex/brewery-harvester/internal/config"
	"github.com/brewdex/brewery-harvester/pkg/publishers"
)

const breweriesPayload = `[
  {"id":"1","name":"Saint Arnold Brewing","street":"2000 Lyons Ave","city":"Houston","state":"Texas"},
  {"id":"2","name":"Real Ale Brewing","street":null,"city":"Blanco","state":"Texas"}
]`

// eventSink collects events posted by the http publisher.
type eventSink struct {
	mu     sync.Mutex
	events []publishers.Event
}

func (s *eventSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var evt publishers.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func (s *eventSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestConfig(t *testing.T, apiURL, sinkURL string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	pubFile := filepath.Join(dir, "publishers.yaml")
	yaml := "publishers:\n" +
		"  - id: sink\n" +
		"    type: http\n" +
		"    http:\n" +
		"      url: " + sinkURL + "\n" +
		"      timeout_seconds: 2\n"
	if err := os.WriteFile(pubFile, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write publishers file: %v", err)
	}

	return &config.Config{
		BreweriesBaseURL:       apiURL,
		UserAgent:              "brewery-harvester-test",
		States:                 []string{"texas"},
		HTTPTimeout:            2 * time.Second,
		PublishersFile:         pubFile,
		HarvestInterval:        time.Hour,
		StorageType:            "bbolt",
		BBoltPath:              filepath.Join(dir, "seen.db"),
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
	}
}

func newBreweryAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("by_state"); got != "texas" {
			t.Errorf("unexpected by_state %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "brewery-harvester-test" {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, breweriesPayload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHarvesterRunOncePublishesEachBreweryOnce(t *testing.T) {
	api := newBreweryAPI(t)
	sink := &eventSink{}
	sinkSrv := httptest.NewServer(sink)
	defer sinkSrv.Close()

	h, err := NewHarvester(context.Background(), newTestConfig(t, api.URL, sinkSrv.URL), nil)
	if err != nil {
		t.Fatalf("NewHarvester: %v", err)
	}
	defer h.close()

	for i := 0; i < 2; i++ {
		if err := h.runOnce(context.Background()); err != nil {
			t.Fatalf("runOnce #%d: %v", i, err)
		}
	}

	if got := sink.count(); got != 2 {
		t.Fatalf("expected 2 events across both passes, got %d", got)
	}
	first := sink.events[0]
	if first.State != "texas" || first.Brewery.Name != "Saint Arnold Brewing" || first.Brewery.StreetOr("") != "2000 Lyons Ave" {
		t.Fatalf("unexpected first event %+v", first)
	}
	if sink.events[1].Brewery.Street != nil {
		t.Fatalf("expected absent street to stay absent, got %q", *sink.events[1].Brewery.Street)
	}

	n, err := testutil.GatherAndCount(h.metrics, "brewery_harvester_loads_total", "brewery_harvester_breweries_published_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 metric series, got %d", n)
	}
}

func TestHarvesterMetricsHandler(t *testing.T) {
	api := newBreweryAPI(t)
	sinkSrv := httptest.NewServer(&eventSink{})
	defer sinkSrv.Close()

	h, err := NewHarvester(context.Background(), newTestConfig(t, api.URL, sinkSrv.URL), nil)
	if err != nil {
		t.Fatalf("NewHarvester: %v", err)
	}
	defer h.close()

	if err := h.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce: %v", err)
	}

	rec := httptest.NewRecorder()
	h.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `brewery_harvester_loads_total{outcome="success",state="texas"} 1`) {
		t.Fatalf("metrics output missing load counter:\n%s", body)
	}
}

func TestHarvesterRunStopsOnCancel(t *testing.T) {
	api := newBreweryAPI(t)
	sink := &eventSink{}
	sinkSrv := httptest.NewServer(sink)
	defer sinkSrv.Close()

	h, err := NewHarvester(context.Background(), newTestConfig(t, api.URL, sinkSrv.URL), nil)
	if err != nil {
		t.Fatalf("NewHarvester: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for sink.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if got := sink.count(); got != 2 {
		t.Fatalf("expected initial pass to publish 2 events, got %d", got)
	}
}

func TestNewHarvesterValidation(t *testing.T) {
	if _, err := NewHarvester(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}

	cfg := newTestConfig(t, "not a url", "http://127.0.0.1:1")
	if _, err := NewHarvester(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for relative base url")
	}

	cfg = newTestConfig(t, "http://example.com", "http://127.0.0.1:1")
	cfg.PublishersFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewHarvester(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for missing publishers file")
	}
}

func TestHarvesterRunRequiresInit(t *testing.T) {
	var h *Harvester
	if err := h.Run(context.Background()); err == nil {
		t.Fatalf("expected error for nil harvester")
	}
}
