package geolib

import (
	"encoding/json"
	"time"
)

// Source tells how a record reached a caller.
type Source string

const (
	// SourceFresh means that data was just taken from a provider (or
	// given explicitly) and persisted.
	SourceFresh Source = "fresh"

	// SourceCached means that data was taken from a store without
	// contacting a provider.
	SourceCached Source = "cached"

	// SourceStaleFallback means that provider has failed but store had
	// a record for the address.
	SourceStaleFallback Source = "stale-fallback"
)

// Location is a set of attributes provider reports for an address. Any
// of them can be absent.
type Location struct {
	CountryCode string   `json:"country_code,omitempty"`
	CountryName string   `json:"country_name,omitempty"`
	Region      string   `json:"region,omitempty"`
	City        string   `json:"city,omitempty"`
	Continent   string   `json:"continent,omitempty"`
	PostalCode  string   `json:"postal_code,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// Empty checks if provider has reported nothing useful.
func (l Location) Empty() bool {
	return l.CountryCode == "" &&
		l.CountryName == "" &&
		l.Region == "" &&
		l.City == "" &&
		l.Latitude == nil &&
		l.Longitude == nil
}

// Normalize returns a copy with normalized country code. If country
// name is absent, it is taken from a country database.
func (l Location) Normalize() Location {
	l.CountryCode = NormalizeAlpha2Code(l.CountryCode)

	if l.CountryName == "" && l.CountryCode != "" {
		l.CountryName = CountryName(l.CountryCode)
	}

	return l
}

// Coordinate is a helper to fill optional latitude and longitude.
func Coordinate(value float64) *float64 {
	return &value
}

// GeolocationRecord is an entity persisted in a Store. There is at most
// one record per canonical address.
type GeolocationRecord struct {
	Location

	ID        string
	Address   Address
	FetchedAt time.Time
	Source    Source
}

type jsonGeolocationRecord struct {
	Location

	ID        string `json:"id,omitempty"`
	IP        string `json:"ip"`
	IPVersion string `json:"ip_version"`
	URL       string `json:"url,omitempty"`
	Host      string `json:"host,omitempty"`
	FetchedAt int64  `json:"fetched_at"`
	Source    Source `json:"source"`
}

func (g GeolocationRecord) MarshalJSON() ([]byte, error) {
	value := jsonGeolocationRecord{
		ID:        g.ID,
		IP:        g.Address.String(),
		IPVersion: g.Address.Kind().String(),
		Host:      g.Address.Host(),
		Source:    g.Source,
		Location:  g.Location,
	}

	if g.Address.Host() != "" {
		value.URL = g.Address.Raw()
	}

	if !g.FetchedAt.IsZero() {
		value.FetchedAt = g.FetchedAt.Unix()
	}

	return json.Marshal(&value)
}
