package handlers

import (
	"net/http"
	"trip-estimator/internal/api/dto"
	"trip-estimator/internal/platform/obs"
	"trip-estimator/internal/ports"

	"go.uber.org/zap"
)

type PlaceHandler struct {
	Suggester ports.PlaceSuggester
}

// Suggest returns autocomplete candidates for ?text=. Suggestions are
// advisory, so a provider failure yields 502 and the client keeps free text.
func (h *PlaceHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if h.Suggester == nil {
		writeJSON(w, r, http.StatusOK, dto.PlacesResponse{Suggestions: []ports.PlaceSuggestion{}})
		return
	}

	s, err := h.Suggester.Suggest(r.Context(), r.URL.Query().Get("text"))
	if err != nil {
		obs.Logger(r.Context()).Warn("place suggestions failed", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "place suggestions unavailable")
		return
	}
	if s == nil {
		s = []ports.PlaceSuggestion{}
	}

	writeJSON(w, r, http.StatusOK, dto.PlacesResponse{Suggestions: s})
}
