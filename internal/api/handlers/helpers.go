package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"trip-estimator/internal/api/dto"
	"trip-estimator/internal/domain"
	"trip-estimator/internal/platform/obs"
	"trip-estimator/internal/services"

	"go.uber.org/zap"
)

// Shown persistently by clients until a key is entered.
const providerNotice = "route provider is not configured: add an OpenRouteService API key in settings"

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.Logger(r.Context()).Warn("encode failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, dto.ErrorResponse{Error: msg})
}

// decodeJSON reads exactly one JSON object with no unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// writeServiceError maps estimator errors onto HTTP statuses. A failed
// resolution is not a server error: the departure is returned with its
// cleared estimate.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, d *domain.Departure) {
	switch {
	case errors.Is(err, domain.ErrDepartureNotFound), errors.Is(err, domain.ErrStopNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownRole), errors.Is(err, domain.ErrUnknownFuelType):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrMissingAddress), errors.Is(err, services.ErrNoHomeAddress):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrResolverUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, providerNotice)
	case errors.Is(err, services.ErrCalculationInProgress), errors.Is(err, services.ErrLastDeparture):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrResolutionFailed):
		writeJSON(w, r, http.StatusBadGateway, dto.ErrorResponse{Error: err.Error(), Departure: d})
	default:
		obs.Logger(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func outcomeError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, services.ErrResolverUnavailable) {
		return providerNotice
	}
	return err.Error()
}
