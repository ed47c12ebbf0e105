package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"racepool/service"

	log "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	retryable := status == http.StatusAccepted || status == http.StatusServiceUnavailable
	writeJSON(w, status, errorResponse{Error: message, Retryable: retryable})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Not-yet-confirmed is a 202: the request was fine, the ledger just has not
// caught up, and the client should retry the identical call.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrPermanentRejection):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotYetConfirmed):
		writeJSONError(w, http.StatusAccepted, err.Error())
	case errors.Is(err, service.ErrNoEligibleEntrants),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrAlreadyDrawn):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUpstreamUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.WithError(err).Error("unhandled service error")
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
