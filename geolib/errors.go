package geolib

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrServiceShutdown = errors.New("service was shutdown")
	ErrContextIsClosed = errors.New("context is closed")

	// ErrInvalidInput matches every *InvalidInputError with errors.Is.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound matches *ResolutionError of ResolutionNotFound kind.
	ErrNotFound = errors.New("geolocation data is not found")

	// ErrServiceUnavailable matches *ResolutionError of
	// ResolutionServiceUnavailable kind.
	ErrServiceUnavailable = errors.New("geolocation service is unavailable")

	// ErrProviderContractViolation matches *ResolutionError of
	// ResolutionProviderContractViolation kind.
	ErrProviderContractViolation = errors.New("provider has returned malformed data")

	// ErrStore matches every *StoreError.
	ErrStore = errors.New("store failure")
)

// InvalidInputError is returned if identifier is neither a valid IP
// address nor a resolvable URL, or if request is ambiguous.
type InvalidInputError struct {
	Input  string
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	msg := fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

type ResolutionErrorKind uint8

const (
	ResolutionNotFound ResolutionErrorKind = iota + 1
	ResolutionServiceUnavailable
	ResolutionProviderContractViolation
)

func (r ResolutionErrorKind) String() string {
	switch r {
	case ResolutionNotFound:
		return "not_found"
	case ResolutionServiceUnavailable:
		return "service_unavailable"
	case ResolutionProviderContractViolation:
		return "provider_contract_violation"
	}

	return "unknown"
}

func (r ResolutionErrorKind) sentinel() error {
	switch r {
	case ResolutionNotFound:
		return ErrNotFound
	case ResolutionServiceUnavailable:
		return ErrServiceUnavailable
	case ResolutionProviderContractViolation:
		return ErrProviderContractViolation
	}

	return nil
}

// ResolutionError is what Orchestrator returns if it cannot produce a
// record. Err usually is *ProviderError which caused a failure.
type ResolutionError struct {
	Kind    ResolutionErrorKind
	Address string
	Err     error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve %s: %v", e.Address, e.Kind.sentinel())

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func (e *ResolutionError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

type ProviderErrorKind uint8

const (
	ProviderNotFound ProviderErrorKind = iota + 1
	ProviderRateLimited
	ProviderUnavailable
	ProviderInvalidResponse
)

func (p ProviderErrorKind) String() string {
	switch p {
	case ProviderNotFound:
		return "not_found"
	case ProviderRateLimited:
		return "rate_limited"
	case ProviderUnavailable:
		return "unavailable"
	case ProviderInvalidResponse:
		return "invalid_response"
	}

	return "unknown"
}

// ProviderError is the only error Provider is allowed to return. It
// never leaves geolib: Orchestrator translates it into
// ResolutionError.
type ProviderError struct {
	Kind     ProviderErrorKind
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError is a shortcut to build *ProviderError.
func NewProviderError(provider string, kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{
		Kind:     kind,
		Provider: provider,
		Err:      err,
	}
}

// AsProviderError extracts *ProviderError from err. Anything else is
// treated as unavailability of the provider.
func AsProviderError(err error) *ProviderError {
	var perr *ProviderError

	if errors.As(err, &perr) {
		return perr
	}

	return &ProviderError{
		Kind: ProviderUnavailable,
		Err:  err,
	}
}

// StoreError wraps any failure which comes from a Store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("cannot %s a record: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

type jsonHTTPError struct {
	Error struct {
		Message string `json:"message"`
		Context string `json:"context"`
	} `json:"error"`
}

type httpError struct {
	message    string
	err        error
	statusCode int
}

func (h *httpError) Message() string {
	if h == nil {
		return ""
	}

	return h.message
}

func (h *httpError) Err() string {
	if err := errors.Unwrap(h); err != nil {
		return err.Error()
	}

	return ""
}

func (h *httpError) StatusCode() int {
	if h != nil && h.statusCode != 0 {
		return h.statusCode
	}

	return http.StatusInternalServerError
}

func (h *httpError) Unwrap() error {
	if h == nil {
		return nil
	}

	return h.err
}

func (h *httpError) Error() string {
	switch {
	case h == nil:
		return ""
	case h.err != nil && h.message != "":
		return h.message + ": " + h.err.Error()
	case h.err != nil:
		return h.err.Error()
	}

	return h.message
}

func (h *httpError) MarshalJSON() ([]byte, error) {
	value := jsonHTTPError{}
	value.Error.Message = h.Message()
	value.Error.Context = h.Err()

	return json.Marshal(&value)
}

// errorToHTTP maps domain errors to status codes and messages.
func errorToHTTP(err error) *httpError {
	rv := &httpError{err: err}

	switch {
	case errors.Is(err, ErrInvalidInput):
		rv.statusCode = http.StatusUnprocessableEntity
		rv.message = "Invalid IP address or URL"
	case errors.Is(err, ErrNotFound):
		rv.statusCode = http.StatusNotFound
		rv.message = "Geolocation data not found"
	case errors.Is(err, ErrServiceUnavailable):
		rv.statusCode = http.StatusServiceUnavailable
		rv.message = "Geolocation provider is unavailable"
	case errors.Is(err, ErrProviderContractViolation):
		rv.statusCode = http.StatusBadGateway
		rv.message = "Geolocation provider has responded with malformed data"
	case errors.Is(err, ErrStore):
		rv.statusCode = http.StatusServiceUnavailable
		rv.message = "Database unavailable"
	case errors.Is(err, ErrServiceShutdown):
		rv.statusCode = http.StatusServiceUnavailable
		rv.message = "Service is shutting down"
	default:
		rv.message = "Cannot process a request"
	}

	return rv
}
