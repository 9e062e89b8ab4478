package domain

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"strings"
)

// Domain contains core models and interfaces.

// Brewery is a validated brewery record. Street is nil when the source omitted it.
type Brewery struct {
	Name   string  `json:"name"`
	Street *string `json:"street"`
	City   string  `json:"city"`
	State  string  `json:"state"`
}

// NewBrewery copies street so the returned value does not alias caller memory.
func NewBrewery(name string, street *string, city, state string) Brewery {
	var s *string
	if street != nil {
		v := *street
		s = &v
	}
	return Brewery{Name: name, Street: s, City: city, State: state}
}

// StreetOr returns the street or fallback when absent.
func (b Brewery) StreetOr(fallback string) string {
	if b.Street == nil {
		return fallback
	}
	return *b.Street
}

// Equal reports structural equality, comparing Street by value.
func (b Brewery) Equal(o Brewery) bool {
	if b.Name != o.Name || b.City != o.City || b.State != o.State {
		return false
	}
	if b.Street == nil || o.Street == nil {
		return b.Street == nil && o.Street == nil
	}
	return *b.Street == *o.Street
}

// Key derives a stable identifier from all fields.
func (b Brewery) Key() string {
	street := "\x00"
	if b.Street != nil {
		street = *b.Street
	}
	raw := strings.Join([]string{b.Name, street, b.City, b.State}, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
