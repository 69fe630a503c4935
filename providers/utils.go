package providers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/9seconds/geostash/geolib"
)

func flushResponse(resp io.ReadCloser) {
	io.Copy(io.Discard, resp) // nolint: errcheck
	resp.Close()
}

func decodeResponse(src io.Reader, target interface{}) error {
	if err := json.NewDecoder(bufio.NewReader(src)).Decode(target); err != nil {
		return fmt.Errorf("cannot parse a response: %w", err)
	}

	return nil
}

// classifyStatusCode maps generic HTTP status codes. ok is false if
// status code has to be checked by provider itself.
func classifyStatusCode(statusCode int) (geolib.ProviderErrorKind, bool) {
	switch {
	case statusCode == http.StatusOK:
		return 0, false
	case statusCode == http.StatusTooManyRequests:
		return geolib.ProviderRateLimited, true
	case statusCode == http.StatusNotFound:
		return geolib.ProviderNotFound, true
	case statusCode >= http.StatusInternalServerError:
		return geolib.ProviderUnavailable, true
	}

	return geolib.ProviderInvalidResponse, true
}
