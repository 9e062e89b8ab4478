package breweries

import "github.com/brewdex/brewery-harvester/internal/domain"

// LoadResult is either a list of breweries (Err == nil) or a LoaderError (Breweries == nil).
type LoadResult struct {
	Breweries []domain.Brewery
	Err       error
}

// OK reports whether the result is a success.
func (r LoadResult) OK() bool { return r.Err == nil }

func success(list []domain.Brewery) LoadResult {
	if list == nil {
		list = []domain.Brewery{}
	}
	return LoadResult{Breweries: list}
}

func failure(kind LoaderError) LoadResult {
	return LoadResult{Err: kind}
}
