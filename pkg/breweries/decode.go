package breweries

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/brewdex/brewery-harvester/internal/domain"
)

// remoteBrewery mirrors one element of the API payload. Pointers keep absent and null fields observable.
type remoteBrewery struct {
	Name   *string `json:"name"`
	Street *string `json:"street"`
	City   *string `json:"city"`
	State  *string `json:"state"`
}

func (r remoteBrewery) validate() error {
	switch {
	case r.Name == nil:
		return errors.New("name is required")
	case strings.TrimSpace(*r.Name) == "":
		return errors.New("name is empty")
	case r.City == nil:
		return errors.New("city is required")
	case r.State == nil:
		return errors.New("state is required")
	}
	return nil
}

func (r remoteBrewery) toDomain() domain.Brewery {
	return domain.NewBrewery(*r.Name, r.Street, *r.City, *r.State)
}

// decodeBreweries parses a JSON array of brewery records. Any invalid element rejects the whole payload.
func decodeBreweries(body []byte) ([]domain.Brewery, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("decode breweries: empty body")
	}
	var records []remoteBrewery
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode breweries: %w", err)
	}
	if records == nil {
		return nil, errors.New("decode breweries: payload is not a JSON array")
	}

	out := make([]domain.Brewery, 0, len(records))
	for i, rec := range records {
		if err := rec.validate(); err != nil {
			return nil, fmt.Errorf("brewery[%d]: %w", i, err)
		}
		out = append(out, rec.toDomain())
	}
	return out, nil
}
