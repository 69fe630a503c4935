package geolib

import (
	"context"
	"net/http"
	"net/netip"
)

// Provider is a client of external geolocation service. Any error it
// returns has to be *ProviderError.
type Provider interface {
	Name() string
	Lookup(context.Context, Address) (Location, error)
}

// Store persists geolocation records. Implementations have to guarantee
// at most one record per canonical address even if Upsert is called
// concurrently.
type Store interface {
	// Get returns false if there is no record for a given address.
	Get(context.Context, Address) (GeolocationRecord, bool, error)

	// Upsert inserts a record or replaces existing one for the same
	// address. Last writer wins.
	Upsert(context.Context, GeolocationRecord) (GeolocationRecord, error)

	// Delete returns true if record existed and was removed.
	Delete(context.Context, Address) (bool, error)
}

// Pinger is implemented by stores which can check their availability.
type Pinger interface {
	Ping(context.Context) error
}

// HostResolver resolves hostnames into IP addresses.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]netip.Addr, error)
}

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Breaker is implemented by HTTP clients which stop calling a provider
// after a series of failures.
type Breaker interface {
	Opened() bool
}

type Logger interface {
	LookupError(addr Address, provider string, err error)
	StoreError(addr Address, op string, err error)
	Resolved(addr Address, source Source)
}
