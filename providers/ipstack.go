package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/9seconds/geostash/geolib"
)

const (
	ipstackErrorCodeNotFound          = 404
	ipstackErrorCodeUsageLimitReached = 104
	ipstackErrorCodeInvalidIPAddress  = 106
)

type ipstackResponse struct {
	Success *bool `json:"success"`
	Error   struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
	Type          *string  `json:"type"`
	ContinentName string   `json:"continent_name"`
	CountryCode   string   `json:"country_code"`
	CountryName   string   `json:"country_name"`
	RegionName    string   `json:"region_name"`
	City          string   `json:"city"`
	Zip           string   `json:"zip"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}

type ipstackProvider struct {
	client     geolib.HTTPClient
	httpScheme string
	authToken  string
}

func (i ipstackProvider) Name() string {
	return NameIPStack
}

func (i ipstackProvider) Lookup(ctx context.Context, addr geolib.Address) (geolib.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.buildURL(addr), nil)
	if err != nil {
		return geolib.Location{}, i.fail(geolib.ProviderUnavailable, fmt.Errorf("cannot build a request: %w", err))
	}

	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return geolib.Location{}, i.fail(geolib.ProviderUnavailable, fmt.Errorf("cannot send a request: %w", err))
	}

	defer flushResponse(resp.Body)

	if kind, ok := classifyStatusCode(resp.StatusCode); ok {
		return geolib.Location{}, i.fail(kind, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	jsonResponse := ipstackResponse{}

	if err := decodeResponse(resp.Body, &jsonResponse); err != nil {
		return geolib.Location{}, i.fail(geolib.ProviderInvalidResponse, err)
	}

	if jsonResponse.Error.Code != 0 || (jsonResponse.Success != nil && !*jsonResponse.Success) {
		return geolib.Location{}, i.fail(
			i.classifyErrorCode(jsonResponse.Error.Code),
			fmt.Errorf("failed response: code=%d, type=%s, info=%s",
				jsonResponse.Error.Code,
				jsonResponse.Error.Type,
				jsonResponse.Error.Info))
	}

	if jsonResponse.Type == nil || *jsonResponse.Type == "" {
		return geolib.Location{}, i.fail(geolib.ProviderNotFound, ErrNoLocation)
	}

	return geolib.Location{
		CountryCode: jsonResponse.CountryCode,
		CountryName: jsonResponse.CountryName,
		Region:      jsonResponse.RegionName,
		City:        jsonResponse.City,
		Continent:   jsonResponse.ContinentName,
		PostalCode:  jsonResponse.Zip,
		Latitude:    jsonResponse.Latitude,
		Longitude:   jsonResponse.Longitude,
	}, nil
}

func (i ipstackProvider) classifyErrorCode(code int) geolib.ProviderErrorKind {
	switch code {
	case ipstackErrorCodeUsageLimitReached:
		return geolib.ProviderRateLimited
	case ipstackErrorCodeNotFound, ipstackErrorCodeInvalidIPAddress:
		return geolib.ProviderNotFound
	}

	return geolib.ProviderInvalidResponse
}

func (i ipstackProvider) fail(kind geolib.ProviderErrorKind, err error) error {
	return geolib.NewProviderError(NameIPStack, kind, err)
}

func (i ipstackProvider) buildURL(addr geolib.Address) string {
	getQuery := url.Values{}

	getQuery.Set("access_key", i.authToken)
	getQuery.Set("output", "json")
	getQuery.Set("fields", "type,continent_name,country_code,country_name,region_name,city,zip,latitude,longitude")
	getQuery.Set("language", "en")
	getQuery.Set("hostname", "0")
	getQuery.Set("security", "0")

	u := url.URL{
		Scheme:   i.httpScheme,
		Host:     "api.ipstack.com",
		Path:     addr.String(),
		RawQuery: getQuery.Encode(),
	}

	return u.String()
}

// NewIPStack returns a client of ipstack.com. Free plan does not
// support https, so isSecure has to be false for it.
func NewIPStack(client geolib.HTTPClient, authToken string, isSecure bool) (geolib.Provider, error) {
	scheme := "http"

	if isSecure {
		scheme = "https"
	}

	if authToken == "" {
		return nil, ErrAuthTokenIsRequired
	}

	return ipstackProvider{
		client:     client,
		authToken:  authToken,
		httpScheme: scheme,
	}, nil
}
