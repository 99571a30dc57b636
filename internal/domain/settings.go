package domain

import (
	"fmt"
	"slices"
	"strings"
)

// FuelTypes lists the fuel types a user can choose from.
var FuelTypes = []string{
	"Motorină",
	"Benzină 95",
	"Benzină 98",
	"GPL",
}

// Settings is the single user configuration of a session.
// An empty APIKey means the routing provider is disabled.
type Settings struct {
	APIKey             string  `json:"apiKey"`
	FuelPrice          float64 `json:"fuelPrice"`
	FuelType           string  `json:"fuelType"`
	AverageConsumption float64 `json:"averageConsumption"`
	HomeAddress        string  `json:"homeAddress"`
}

// SettingsPatch carries a partial settings update; nil fields are untouched.
type SettingsPatch struct {
	APIKey             *string
	FuelPrice          *float64
	FuelType           *string
	AverageConsumption *float64
	HomeAddress        *string
}

func DefaultSettings() Settings {
	return Settings{
		APIKey:             "",
		FuelPrice:          7.5,
		FuelType:           FuelTypes[0],
		AverageConsumption: 7.5,
		HomeAddress:        "",
	}
}

func IsFuelType(s string) bool {
	return slices.Contains(FuelTypes, s)
}

// ProviderConfigured reports whether a routing credential has been entered.
func (s Settings) ProviderConfigured() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// Normalize clamps numeric fields and replaces an unknown fuel type with the
// default. It is applied to anything read back from storage.
func (s Settings) Normalize() Settings {
	s.FuelPrice = ClampNonNegative(s.FuelPrice)
	s.AverageConsumption = ClampNonNegative(s.AverageConsumption)
	if !IsFuelType(s.FuelType) {
		s.FuelType = DefaultSettings().FuelType
	}
	return s
}

// Apply merges a user edit. Numeric fields are clamped at this boundary so a
// negative or NaN value is never stored; an unknown fuel type is rejected.
func (s Settings) Apply(p SettingsPatch) (Settings, error) {
	if p.FuelType != nil && !IsFuelType(*p.FuelType) {
		return s, fmt.Errorf("apply settings: fuel type %q: %w", *p.FuelType, ErrUnknownFuelType)
	}

	if p.APIKey != nil {
		s.APIKey = strings.TrimSpace(*p.APIKey)
	}
	if p.FuelPrice != nil {
		s.FuelPrice = ClampNonNegative(*p.FuelPrice)
	}
	if p.FuelType != nil {
		s.FuelType = *p.FuelType
	}
	if p.AverageConsumption != nil {
		s.AverageConsumption = ClampNonNegative(*p.AverageConsumption)
	}
	if p.HomeAddress != nil {
		s.HomeAddress = *p.HomeAddress
	}

	return s, nil
}
