package providers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/9seconds/geostash/geolib"
)

type ipinfoResponse struct {
	Bogon   bool   `json:"bogon"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Loc     string `json:"loc"`
	Postal  string `json:"postal"`
}

type ipinfoProvider struct {
	authToken string
	client    geolib.HTTPClient
}

func (i ipinfoProvider) Name() string {
	return NameIPInfo
}

func (i ipinfoProvider) Lookup(ctx context.Context, addr geolib.Address) (geolib.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://ipinfo.io/"+addr.String(), nil)
	if err != nil {
		return geolib.Location{}, i.fail(geolib.ProviderUnavailable, fmt.Errorf("cannot build a request: %w", err))
	}

	req.Header.Set("Accept", "application/json")

	if i.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+i.authToken)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return geolib.Location{}, i.fail(geolib.ProviderUnavailable, fmt.Errorf("cannot send a request: %w", err))
	}

	defer flushResponse(resp.Body)

	if kind, ok := classifyStatusCode(resp.StatusCode); ok {
		return geolib.Location{}, i.fail(kind, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	jsonResponse := ipinfoResponse{}

	if err := decodeResponse(resp.Body, &jsonResponse); err != nil {
		return geolib.Location{}, i.fail(geolib.ProviderInvalidResponse, err)
	}

	if jsonResponse.Bogon {
		return geolib.Location{}, i.fail(geolib.ProviderNotFound, ErrNoLocation)
	}

	rv := geolib.Location{
		CountryCode: jsonResponse.Country,
		Region:      jsonResponse.Region,
		City:        jsonResponse.City,
		PostalCode:  jsonResponse.Postal,
	}

	if jsonResponse.Loc != "" {
		latitude, longitude, err := i.parseLoc(jsonResponse.Loc)
		if err != nil {
			return geolib.Location{}, i.fail(geolib.ProviderInvalidResponse, err)
		}

		rv.Latitude = geolib.Coordinate(latitude)
		rv.Longitude = geolib.Coordinate(longitude)
	}

	if rv.Empty() {
		return geolib.Location{}, i.fail(geolib.ProviderNotFound, ErrNoLocation)
	}

	return rv, nil
}

// loc is "latitude,longitude"
func (i ipinfoProvider) parseLoc(loc string) (float64, float64, error) {
	chunks := strings.Split(loc, ",")
	if len(chunks) != 2 {
		return 0, 0, fmt.Errorf("incorrect loc %s", loc)
	}

	latitude, err := strconv.ParseFloat(strings.TrimSpace(chunks[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("incorrect latitude: %w", err)
	}

	longitude, err := strconv.ParseFloat(strings.TrimSpace(chunks[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("incorrect longitude: %w", err)
	}

	return latitude, longitude, nil
}

func (i ipinfoProvider) fail(kind geolib.ProviderErrorKind, err error) error {
	return geolib.NewProviderError(NameIPInfo, kind, err)
}

// NewIPInfo returns a client of ipinfo.io. Auth token is optional but
// anonymous access is heavily rate limited.
func NewIPInfo(client geolib.HTTPClient, authToken string) geolib.Provider {
	return ipinfoProvider{
		authToken: authToken,
		client:    client,
	}
}
