package harvest

import (
	"context"

	"github.com/brewdex/brewery-harvester/pkg/breweries"
)

// StateResult pairs a state filter with the outcome of loading it.
type StateResult struct {
	State string
	breweries.LoadResult
}

// LoadAll starts one load per state before waiting on any of them, then returns results in input order.
func LoadAll(ctx context.Context, loader breweries.Loader, states []string) []StateResult {
	pending := make([]<-chan breweries.LoadResult, len(states))
	for i, state := range states {
		pending[i] = loader.Load(ctx, state)
	}

	out := make([]StateResult, len(states))
	for i, ch := range pending {
		out[i] = StateResult{State: states[i], LoadResult: <-ch}
	}
	return out
}
