package handlers

import (
	"net/http"
	"trip-estimator/internal/api/dto"
	"trip-estimator/internal/domain"
	"trip-estimator/internal/services"
)

type SettingsHandler struct {
	Estimator *services.Estimator
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.NewSettingsResponse(h.Estimator.Settings(), h.Estimator.ResolverReady()))
}

// Update applies a partial edit. Negative or non-finite numbers are stored
// as 0; an unknown fuel type is rejected.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.SettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.Estimator.UpdateSettings(r.Context(), req.Patch())
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewSettingsResponse(s, h.Estimator.ResolverReady()))
}

func FuelTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.FuelTypesResponse{FuelTypes: domain.FuelTypes})
}
