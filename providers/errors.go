package providers

import "errors"

var (
	// ErrAuthTokenIsRequired is returned if you are trying to initialize
	// a provider which requires some token to work.
	ErrAuthTokenIsRequired = errors.New("auth token is required")

	// ErrNoLocation is returned if provider has responded successfully
	// but without any location data. Usually it happens for private and
	// reserved ranges.
	ErrNoLocation = errors.New("response has no location data")
)
