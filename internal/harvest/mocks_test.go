package harvest

import (
	"context"
	"errors"
	"sync"

	"github.com/brewdex/brewery-harvester/internal/domain"
	"github.com/brewdex/brewery-harvester/pkg/breweries"
	"github.com/brewdex/brewery-harvester/pkg/publishers"
)

// scriptedLoader replays results per state; the last result repeats once the script runs out.
type scriptedLoader struct {
	mu      sync.Mutex
	scripts map[string][]breweries.LoadResult
	calls   map[string]int
}

func newScriptedLoader(scripts map[string][]breweries.LoadResult) *scriptedLoader {
	return &scriptedLoader{scripts: scripts, calls: make(map[string]int)}
}

func (l *scriptedLoader) Load(_ context.Context, state string) <-chan breweries.LoadResult {
	l.mu.Lock()
	script := l.scripts[state]
	n := l.calls[state]
	l.calls[state]++
	l.mu.Unlock()

	out := make(chan breweries.LoadResult, 1)
	switch {
	case len(script) == 0:
		out <- breweries.LoadResult{Err: breweries.ErrClientError}
	case n < len(script):
		out <- script[n]
	default:
		out <- script[len(script)-1]
	}
	close(out)
	return out
}

func (l *scriptedLoader) callsFor(state string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[state]
}

// fakePublisher records events and fails those whose brewery name matches failName.
type fakePublisher struct {
	mu       sync.Mutex
	events   []publishers.Event
	failName string
}

func (f *fakePublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	if evt.Brewery.Name == f.failName {
		return 0, errors.New("boom")
	}
	return 1, nil
}

func (f *fakePublisher) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, evt := range f.events {
		out[i] = evt.Brewery.Name
	}
	return out
}

// fakeDeduper tracks seen keys and can fail lookups for one key.
type fakeDeduper struct {
	mu      sync.Mutex
	seen    map[string]bool
	failKey string
}

func (f *fakeDeduper) SeenBrewery(key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key == f.failKey {
		return false, errors.New("lookup failed")
	}
	return f.seen[key], nil
}

func (f *fakeDeduper) MarkBrewery(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	f.seen[key] = true
	return nil
}

func brewery(name, city, state string) domain.Brewery {
	return domain.NewBrewery(name, nil, city, state)
}

func ok(list ...domain.Brewery) breweries.LoadResult {
	if list == nil {
		list = []domain.Brewery{}
	}
	return breweries.LoadResult{Breweries: list}
}

func fail(kind breweries.LoaderError) breweries.LoadResult {
	return breweries.LoadResult{Err: kind}
}
