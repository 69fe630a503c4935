package geolib

import (
	"net/http"
)

func requestFromQuery(req *http.Request) Request {
	query := req.URL.Query()

	return Request{
		IPAddress: query.Get("ip_address"),
		URL:       query.Get("url"),
	}
}

func (h httpHandler) handleGet(w http.ResponseWriter, req *http.Request) {
	record, err := h.service.Resolve(req.Context(), requestFromQuery(req))
	if err != nil {
		h.sendHTTPError(w, errorToHTTP(err))

		return
	}

	h.sendSuccess(w, http.StatusOK, struct {
		Geolocation GeolocationRecord `json:"geolocation"`
	}{
		Geolocation: record,
	})
}

func (h httpHandler) handleGetStats(w http.ResponseWriter, req *http.Request) {
	h.sendSuccess(w, http.StatusOK, struct {
		Results []*UsageStats `json:"results"`
	}{
		Results: []*UsageStats{h.service.UsageStats()},
	})
}

const (
	healthStatusOk          = "ok"
	healthStatusUnavailable = "unavailable"
)

func (h httpHandler) handleGetHealth(w http.ResponseWriter, req *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(req.Context()); err != nil {
			h.sendError(w, err, "Database unavailable", http.StatusServiceUnavailable)

			return
		}
	}

	providerStatus := healthStatusOk
	if h.breaker != nil && h.breaker.Opened() {
		providerStatus = healthStatusUnavailable
	}

	h.sendSuccess(w, http.StatusOK, struct {
		Healthy    bool              `json:"healthy"`
		Components map[string]string `json:"components"`
	}{
		Healthy: true,
		Components: map[string]string{
			"store":    healthStatusOk,
			"provider": providerStatus,
		},
	})
}
