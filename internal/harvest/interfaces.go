package harvest

import (
	"context"

	"github.com/brewdex/brewery-harvester/pkg/publishers"
)

// EventPublisher publishes brewery events downstream and reports how many sinks accepted each one.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers which breweries were already published.
type Deduper interface {
	SeenBrewery(key string) (bool, error)
	MarkBrewery(key string) error
}

type noopDeduper struct{}

func (noopDeduper) SeenBrewery(string) (bool, error) { return false, nil }
func (noopDeduper) MarkBrewery(string) error         { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, publishers.Event) (int, error) { return 0, nil }
