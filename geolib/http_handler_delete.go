package geolib

import "net/http"

func (h httpHandler) handleDelete(w http.ResponseWriter, req *http.Request) {
	deleted, err := h.service.Delete(req.Context(), requestFromQuery(req))
	if err != nil {
		h.sendHTTPError(w, errorToHTTP(err))

		return
	}

	if !deleted {
		h.sendError(w, nil, "Geolocation data not found", http.StatusNotFound)

		return
	}

	h.sendSuccess(w, http.StatusOK, struct {
		Deleted bool `json:"deleted"`
	}{
		Deleted: true,
	})
}
