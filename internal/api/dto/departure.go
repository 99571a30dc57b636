package dto

import "trip-estimator/internal/domain"

type DepartureListResponse struct {
	Departures []*domain.Departure `json:"departures"`
	Totals     TotalsResponse      `json:"totals"`
}

type TotalsResponse struct {
	domain.GrandTotal
	Empty bool `json:"empty"`
}

func NewTotalsResponse(t domain.GrandTotal) TotalsResponse {
	return TotalsResponse{GrandTotal: t, Empty: t.IsEmpty()}
}

type PatchDepartureRequest struct {
	Name        *string `json:"name"`
	IsCollapsed *bool   `json:"isCollapsed"`
}

// Address edit. A placeId marks the value as a picked suggestion; stopId is
// required for the intermediate role.
type AddressRequest struct {
	Value   string `json:"value"`
	StopID  string `json:"stopId"`
	PlaceID string `json:"placeId"`
}

type KitsRequest struct {
	Kits int `json:"kits"`
}

type ErrorResponse struct {
	Error     string            `json:"error"`
	Departure *domain.Departure `json:"departure,omitempty"`
}

type CalculationOutcomeResponse struct {
	DepartureID string            `json:"departureId"`
	Departure   *domain.Departure `json:"departure,omitempty"`
	Error       string            `json:"error,omitempty"`
}

type CalculateAllResponse struct {
	Outcomes []CalculationOutcomeResponse `json:"outcomes"`
	Totals   TotalsResponse               `json:"totals"`
}
