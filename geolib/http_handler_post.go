package geolib

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/qri-io/jsonschema"
)

const maxRequestBodySize = 1 << 20

var handlePostRequestJSONSchema = mustJSONSchema(`{
    "type": "object",
    "additionalProperties": false,
    "properties": {
        "ip_address": {
            "type": "string",
            "minLength": 1,
            "maxLength": 64
        },
        "url": {
            "type": "string",
            "minLength": 1,
            "maxLength": 2048
        },
        "location": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
                "country_code": {
                    "type": "string",
                    "minLength": 2,
                    "maxLength": 2
                },
                "country_name": {
                    "type": "string"
                },
                "region": {
                    "type": "string"
                },
                "city": {
                    "type": "string"
                },
                "continent": {
                    "type": "string"
                },
                "postal_code": {
                    "type": "string"
                },
                "latitude": {
                    "type": "number",
                    "minimum": -90,
                    "maximum": 90
                },
                "longitude": {
                    "type": "number",
                    "minimum": -180,
                    "maximum": 180
                }
            }
        }
    }
}`)

var handlePostBatchRequestJSONSchema = mustJSONSchema(`{
    "type": "object",
    "required": [
        "items"
    ],
    "additionalProperties": false,
    "properties": {
        "items": {
            "type": "array",
            "minItems": 1,
            "maxItems": 1000,
            "items": {
                "type": "object",
                "additionalProperties": false,
                "properties": {
                    "ip_address": {
                        "type": "string",
                        "minLength": 1,
                        "maxLength": 64
                    },
                    "url": {
                        "type": "string",
                        "minLength": 1,
                        "maxLength": 2048
                    }
                }
            }
        }
    }
}`)

func mustJSONSchema(data string) *jsonschema.Schema {
	rv := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(data), rv); err != nil {
		panic(err)
	}

	return rv
}

type handlePostRequest struct {
	Request

	Location *Location `json:"location"`
}

type handlePostBatchRequest struct {
	Items []Request `json:"items"`
}

func (h httpHandler) handlePost(w http.ResponseWriter, req *http.Request) {
	parsedRequest := &handlePostRequest{}

	if !h.readJSONBody(w, req, handlePostRequestJSONSchema, parsedRequest) {
		return
	}

	record, err := h.service.Add(req.Context(), parsedRequest.Request, parsedRequest.Location)
	if err != nil {
		h.sendHTTPError(w, errorToHTTP(err))

		return
	}

	h.sendSuccess(w, http.StatusCreated, struct {
		Geolocation GeolocationRecord `json:"geolocation"`
	}{
		Geolocation: record,
	})
}

func (h httpHandler) handlePostBatch(w http.ResponseWriter, req *http.Request) {
	parsedRequest := &handlePostBatchRequest{}

	if !h.readJSONBody(w, req, handlePostBatchRequestJSONSchema, parsedRequest) {
		return
	}

	results, err := h.service.ResolveAll(req.Context(), parsedRequest.Items)
	if err != nil {
		h.sendHTTPError(w, errorToHTTP(err))

		return
	}

	h.sendSuccess(w, http.StatusOK, struct {
		Results []BatchResult `json:"results"`
	}{
		Results: results,
	})
}

// readJSONBody validates body against a schema and decodes it into
// target. If it returns false, error response is already sent.
func (h httpHandler) readJSONBody(w http.ResponseWriter, req *http.Request,
	schema *jsonschema.Schema, target interface{}) bool {
	if !strings.Contains(req.Header.Get("Content-Type"), "application/json") {
		h.sendError(w, nil, "Incorrect content type", http.StatusUnsupportedMediaType)

		return false
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(req.Body, maxRequestBodySize))

	req.Body.Close()

	if err != nil {
		h.sendError(w, err, "Cannot read request body", http.StatusBadRequest)

		return false
	}

	errs, err := schema.ValidateBytes(req.Context(), bodyBytes)
	if err != nil {
		h.sendError(w, err, "Cannot validate body", http.StatusBadRequest)

		return false
	}

	if len(errs) > 0 {
		h.sendError(w, errs[0], "Invalid request body", http.StatusBadRequest)

		return false
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		h.sendError(w, err, "Cannot parse request JSON", http.StatusBadRequest)

		return false
	}

	return true
}
