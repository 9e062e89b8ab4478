package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/brewdex/brewery-harvester/internal/domain"
	"github.com/brewdex/brewery-harvester/internal/logger"
	"github.com/brewdex/brewery-harvester/pkg/breweries"
	"github.com/brewdex/brewery-harvester/pkg/publishers"
)

// Options tunes retry behaviour and instrumentation.
type Options struct {
	// RetryMaxElapsed bounds retries of client errors per state. Zero disables retries.
	RetryMaxElapsed time.Duration
	// NewBackOff overrides the retry schedule; mainly for tests.
	NewBackOff func() backoff.BackOff
	Metrics    *Metrics
}

// Service runs harvest passes: load every state, keep unseen breweries, publish them.
type Service struct {
	loader    breweries.Loader
	publisher EventPublisher
	deduper   Deduper
	log       logger.Logger
	opts      Options
}

// NewService wires a harvester around loader. Nil collaborators fall back to no-ops.
func NewService(loader breweries.Loader, pub EventPublisher, deduper Deduper, log logger.Logger, opts Options) *Service {
	if pub == nil {
		pub = noopPublisher{}
	}
	if deduper == nil {
		deduper = noopDeduper{}
	}
	return &Service{
		loader:    loader,
		publisher: pub,
		deduper:   deduper,
		log:       logger.Ensure(log),
		opts:      opts,
	}
}

// Run executes one harvest pass over states. Per-state failures are joined; one state failing
// does not stop the others.
func (s *Service) Run(ctx context.Context, states []string) error {
	if s == nil || s.loader == nil {
		return fmt.Errorf("harvest service is not initialized")
	}
	if len(states) == 0 {
		return fmt.Errorf("no states configured for harvesting")
	}

	results := s.loadStates(ctx, states)

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("load state %s: %w", res.State, res.Err))
			s.log.ErrorObj("state load failed", "state_error", map[string]any{
				"state": res.State,
				"error": res.Err.Error(),
			})
			continue
		}
		if err := s.publishNew(ctx, res.State, res.Breweries); err != nil {
			errs = append(errs, fmt.Errorf("publish state %s: %w", res.State, err))
		}
	}
	return errors.Join(errs...)
}

// loadStates loads all states concurrently, each with its own retry loop.
func (s *Service) loadStates(ctx context.Context, states []string) []StateResult {
	out := make([]StateResult, len(states))
	var wg sync.WaitGroup
	for i, state := range states {
		wg.Add(1)
		go func(i int, state string) {
			defer wg.Done()
			list, err := s.loadWithRetry(ctx, state)
			out[i] = StateResult{State: state, LoadResult: breweries.LoadResult{Breweries: list, Err: err}}
		}(i, state)
	}
	wg.Wait()
	return out
}

// loadWithRetry retries client errors only; invalid data is terminal.
func (s *Service) loadWithRetry(ctx context.Context, state string) ([]domain.Brewery, error) {
	attempt := func() ([]domain.Brewery, error) {
		list, err := breweries.Fetch(ctx, s.loader, state)
		s.opts.Metrics.observeLoad(state, err)
		if err != nil && !errors.Is(err, breweries.ErrClientError) {
			return nil, backoff.Permanent(err)
		}
		return list, err
	}
	notify := func(err error, wait time.Duration) {
		s.opts.Metrics.observeRetry(state)
		s.log.WarnObj("state load failed, retrying", "state_retry", map[string]any{
			"state":   state,
			"error":   err.Error(),
			"wait_ms": wait.Milliseconds(),
		})
	}
	return backoff.RetryNotifyWithData(attempt, backoff.WithContext(s.newBackOff(), ctx), notify)
}

func (s *Service) newBackOff() backoff.BackOff {
	if s.opts.NewBackOff != nil {
		return s.opts.NewBackOff()
	}
	if s.opts.RetryMaxElapsed <= 0 {
		return &backoff.StopBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.opts.RetryMaxElapsed
	return b
}

// publishNew publishes breweries not seen before and marks the ones at least one sink accepted.
func (s *Service) publishNew(ctx context.Context, state string, list []domain.Brewery) error {
	fresh := s.filterNew(state, list)

	var errs []error
	published := 0
	for _, b := range fresh {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		n, err := s.publisher.Publish(ctx, publishers.NewEvent(state, b))
		if err != nil {
			errs = append(errs, fmt.Errorf("brewery %q: %w", b.Name, err))
		}
		if n == 0 {
			continue
		}
		if err := s.deduper.MarkBrewery(b.Key()); err != nil {
			errs = append(errs, fmt.Errorf("mark brewery %q: %w", b.Name, err))
		}
		published++
	}

	s.opts.Metrics.observePublished(state, published)
	s.log.InfoObj("state harvest completed", "state_result", map[string]any{
		"state":     state,
		"loaded":    len(list),
		"new":       len(fresh),
		"published": published,
	})
	return errors.Join(errs...)
}

// filterNew drops breweries already published and duplicates within list.
// A lookup failure keeps the brewery so it is not silently lost.
func (s *Service) filterNew(state string, list []domain.Brewery) []domain.Brewery {
	out := make([]domain.Brewery, 0, len(list))
	batch := make(map[string]struct{}, len(list))
	for _, b := range list {
		key := b.Key()
		if _, dup := batch[key]; dup {
			continue
		}
		batch[key] = struct{}{}

		seen, err := s.deduper.SeenBrewery(key)
		if err != nil {
			s.log.WarnObj("dedupe lookup failed", "dedupe_error", map[string]any{
				"state":   state,
				"brewery": b.Name,
				"error":   err.Error(),
			})
		}
		if seen {
			continue
		}
		out = append(out, b)
	}
	return out
}
