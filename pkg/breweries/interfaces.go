package breweries

import (
	"context"

	"github.com/brewdex/brewery-harvester/pkg/httpclient"
)

// Loader retrieves breweries for a state filter.
//
// Load never blocks. The returned channel delivers exactly one LoadResult and is then closed.
type Loader interface {
	Load(ctx context.Context, state string) <-chan LoadResult
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within breweries.
type HTTPClient = httpclient.Client
