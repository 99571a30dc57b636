package dto

import "trip-estimator/internal/ports"

type PlacesResponse struct {
	Suggestions []ports.PlaceSuggestion `json:"suggestions"`
}
