package dto

import "trip-estimator/internal/domain"

// Partial settings edit; absent fields are left untouched.
type SettingsRequest struct {
	APIKey             *string  `json:"apiKey"`
	FuelPrice          *float64 `json:"fuelPrice"`
	FuelType           *string  `json:"fuelType"`
	AverageConsumption *float64 `json:"averageConsumption"`
	HomeAddress        *string  `json:"homeAddress"`
}

func (r SettingsRequest) Patch() domain.SettingsPatch {
	return domain.SettingsPatch{
		APIKey:             r.APIKey,
		FuelPrice:          r.FuelPrice,
		FuelType:           r.FuelType,
		AverageConsumption: r.AverageConsumption,
		HomeAddress:        r.HomeAddress,
	}
}

// The stored credential is never echoed back, only whether one is set.
type SettingsResponse struct {
	FuelPrice          float64 `json:"fuelPrice"`
	FuelType           string  `json:"fuelType"`
	AverageConsumption float64 `json:"averageConsumption"`
	HomeAddress        string  `json:"homeAddress"`
	ProviderConfigured bool    `json:"providerConfigured"`
	ProviderReady      bool    `json:"providerReady"`
}

func NewSettingsResponse(s domain.Settings, ready bool) SettingsResponse {
	return SettingsResponse{
		FuelPrice:          s.FuelPrice,
		FuelType:           s.FuelType,
		AverageConsumption: s.AverageConsumption,
		HomeAddress:        s.HomeAddress,
		ProviderConfigured: s.ProviderConfigured(),
		ProviderReady:      ready,
	}
}

type FuelTypesResponse struct {
	FuelTypes []string `json:"fuelTypes"`
}
