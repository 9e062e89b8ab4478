package publishers

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/brewdex/brewery-harvester/internal/domain"
)

// Event represents the payload published downstream for one newly seen brewery.
type Event struct {
	ID          string         `json:"id"`
	State       string         `json:"state"`
	Brewery     domain.Brewery `json:"brewery"`
	CollectedAt time.Time      `json:"collected_at"`
}

// NewEvent constructs an Event for a brewery loaded with the given state filter.
func NewEvent(state string, brewery domain.Brewery) Event {
	return Event{
		ID:          uuid.NewString(),
		State:       state,
		Brewery:     brewery,
		CollectedAt: time.Now().UTC(),
	}
}

// Marshal encodes the event as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// attributes are attached to queue/topic messages so consumers can filter without decoding.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_id": e.ID,
		"state":    e.State,
	}
}
