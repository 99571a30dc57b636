package handlers

import (
	"net/http"
	"trip-estimator/internal/api/dto"
	"trip-estimator/internal/domain"
	"trip-estimator/internal/ports"
	"trip-estimator/internal/services"
)

type DepartureHandler struct {
	Estimator *services.Estimator
}

func (h *DepartureHandler) List(w http.ResponseWriter, r *http.Request) {
	c := h.Estimator.Departures()
	writeJSON(w, r, http.StatusOK, dto.DepartureListResponse{
		Departures: c.Items(),
		Totals:     dto.NewTotalsResponse(c.Totals()),
	})
}

func (h *DepartureHandler) Create(w http.ResponseWriter, r *http.Request) {
	d := h.Estimator.CreateDeparture(r.Context())
	writeJSON(w, r, http.StatusCreated, d)
}

func (h *DepartureHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var req dto.PatchDepartureRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.Estimator.UpdateDeparture(r.Context(), r.PathValue("id"), req.Name, req.IsCollapsed)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

func (h *DepartureHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Estimator.RemoveDeparture(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DepartureHandler) AddStop(w http.ResponseWriter, r *http.Request) {
	stop, err := h.Estimator.AddStop(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusCreated, stop)
}

func (h *DepartureHandler) RemoveStop(w http.ResponseWriter, r *http.Request) {
	d, err := h.Estimator.RemoveStop(r.Context(), r.PathValue("id"), r.PathValue("stopId"))
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

func (h *DepartureHandler) UpdateKits(w http.ResponseWriter, r *http.Request) {
	var req dto.KitsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.Estimator.UpdateStopKits(r.Context(), r.PathValue("id"), r.PathValue("stopId"), req.Kits)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

// UpdateAddress stores free text, or a picked suggestion when placeId is set.
func (h *DepartureHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	role, err := domain.ParseAddressRole(r.PathValue("role"))
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}

	var req dto.AddressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := r.PathValue("id")

	var d *domain.Departure
	if req.PlaceID != "" {
		d, err = h.Estimator.SelectPlace(r.Context(), id, role, req.StopID, ports.PlaceSuggestion{
			PlaceID: req.PlaceID,
			Label:   req.Value,
		})
	} else {
		d, err = h.Estimator.UpdateAddress(r.Context(), id, role, req.StopID, req.Value)
	}
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

// UseHome copies the home address from settings into the start or return
// address.
func (h *DepartureHandler) UseHome(w http.ResponseWriter, r *http.Request) {
	role, err := domain.ParseAddressRole(r.PathValue("role"))
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}

	d, err := h.Estimator.UseHomeAddress(r.Context(), r.PathValue("id"), role)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

func (h *DepartureHandler) Totals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.NewTotalsResponse(h.Estimator.Totals()))
}
