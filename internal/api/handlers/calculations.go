package handlers

import (
	"net/http"
	"trip-estimator/internal/api/dto"
	"trip-estimator/internal/services"
)

type CalculationHandler struct {
	Estimator *services.Estimator
}

// Calculate resolves one departure and waits for the outcome.
func (h *CalculationHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	d, err := h.Estimator.Calculate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, d)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

// CalculateAll reports one outcome per eligible departure; individual
// failures do not fail the request.
func (h *CalculationHandler) CalculateAll(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.Estimator.CalculateAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}

	res := dto.CalculateAllResponse{
		Outcomes: make([]dto.CalculationOutcomeResponse, 0, len(outcomes)),
		Totals:   dto.NewTotalsResponse(h.Estimator.Totals()),
	}
	for _, o := range outcomes {
		res.Outcomes = append(res.Outcomes, dto.CalculationOutcomeResponse{
			DepartureID: o.DepartureID,
			Departure:   o.Departure,
			Error:       outcomeError(o.Err),
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}
