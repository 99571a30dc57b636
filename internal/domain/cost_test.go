package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestCalculateCost(t *testing.T) {
	est, err := CalculateCost(100, 8, 7.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if est.FuelLiters != 8.0 {
		t.Fatalf("fuel = %v, want 8", est.FuelLiters)
	}
	if est.TotalCost != 60.0 {
		t.Fatalf("cost = %v, want 60", est.TotalCost)
	}
	if est.DistanceKm != 100 {
		t.Fatalf("distance = %v, want 100", est.DistanceKm)
	}
}

func TestCalculateCostZeroDistance(t *testing.T) {
	est, err := CalculateCost(0, 8, 7.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.FuelLiters != 0 || est.TotalCost != 0 {
		t.Fatalf("estimate = %+v, want zero fuel and cost", est)
	}
}

func TestCalculateCostRejectsInvalidInput(t *testing.T) {
	cases := [][3]float64{
		{-1, 8, 7.5},
		{100, -8, 7.5},
		{100, 8, -7.5},
		{math.NaN(), 8, 7.5},
		{math.Inf(1), 8, 7.5},
	}

	for _, tc := range cases {
		if _, err := CalculateCost(tc[0], tc[1], tc[2]); !errors.Is(err, ErrInvalidCostInput) {
			t.Errorf("CalculateCost(%v) err = %v, want ErrInvalidCostInput", tc, err)
		}
	}
}

func TestTotalsSkipsUncalculated(t *testing.T) {
	deps := []*Departure{
		{Result: &Estimate{DistanceKm: 100, FuelLiters: 8, TotalCost: 60}},
		{},
		{
			Result:            &Estimate{DistanceKm: 50, FuelLiters: 4, TotalCost: 30},
			IntermediateStops: []Address{{Kits: 2}, {Kits: 3}},
		},
	}

	got := Totals(deps)

	if got.DistanceKm != 150 {
		t.Fatalf("distance = %v, want 150", got.DistanceKm)
	}
	if got.FuelLiters != 12 || got.TotalCost != 90 {
		t.Fatalf("totals = %+v", got)
	}
	if got.Kits != 5 {
		t.Fatalf("kits = %d, want 5", got.Kits)
	}
	if got.IsEmpty() {
		t.Fatalf("totals should not be empty")
	}
	if !Totals(nil).IsEmpty() {
		t.Fatalf("empty list should give empty totals")
	}
}

func TestDepartureJSONResultTrio(t *testing.T) {
	d := NewDeparture(1)
	d.Result = &Estimate{DistanceKm: 12.5, FuelLiters: 1, TotalCost: 7.5}

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Departure
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Result == nil || back.Result.DistanceKm != 12.5 {
		t.Fatalf("result lost: %+v", back.Result)
	}

	partial := []byte(`{"id":"x","name":"Departure 1","distance":10,"fuelConsumption":null,"totalCost":5}`)
	if err := json.Unmarshal(partial, &back); err != nil {
		t.Fatalf("unmarshal partial: %v", err)
	}
	if back.Result != nil {
		t.Fatalf("partial trio must decode as not calculated, got %+v", back.Result)
	}
	if back.IntermediateStops == nil {
		t.Fatalf("stops should decode to an empty list")
	}

	negative := []byte(`{"id":"x","name":"Departure 1","distance":-100,"fuelConsumption":-8,"totalCost":-60}`)
	if err := json.Unmarshal(negative, &back); err != nil {
		t.Fatalf("unmarshal negative: %v", err)
	}
	if back.Result != nil {
		t.Fatalf("negative trio must decode as not calculated, got %+v", back.Result)
	}
}

func TestEstimateValid(t *testing.T) {
	cases := []struct {
		e    Estimate
		want bool
	}{
		{Estimate{}, true},
		{Estimate{DistanceKm: 61.2, FuelLiters: 4.9, TotalCost: 36.7}, true},
		{Estimate{DistanceKm: -1}, false},
		{Estimate{FuelLiters: math.NaN()}, false},
		{Estimate{TotalCost: math.Inf(1)}, false},
	}
	for _, c := range cases {
		if got := c.e.Valid(); got != c.want {
			t.Errorf("%+v.Valid() = %v, want %v", c.e, got, c.want)
		}
	}
}

func TestSettingsApplyClampsAndValidates(t *testing.T) {
	s := DefaultSettings()

	price := -3.0
	consumption := math.NaN()
	s, err := s.Apply(SettingsPatch{FuelPrice: &price, AverageConsumption: &consumption})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.FuelPrice != 0 || s.AverageConsumption != 0 {
		t.Fatalf("settings not clamped: %+v", s)
	}

	bad := "Kerosene"
	if _, err := s.Apply(SettingsPatch{FuelType: &bad}); !errors.Is(err, ErrUnknownFuelType) {
		t.Fatalf("err = %v, want ErrUnknownFuelType", err)
	}

	stored := Settings{FuelType: "Kerosene", FuelPrice: -1}
	if n := stored.Normalize(); n.FuelType != FuelTypes[0] || n.FuelPrice != 0 {
		t.Fatalf("normalize = %+v", n)
	}
}

func TestCoordinatesValid(t *testing.T) {
	if !(Coordinates{Lon: 23.59, Lat: 46.77}).Valid() {
		t.Fatalf("expected Cluj to be valid")
	}
	if (Coordinates{Lon: 200, Lat: 0}).Valid() {
		t.Fatalf("expected out-of-range longitude to be invalid")
	}
	if (Coordinates{Lon: 0, Lat: math.NaN()}).Valid() {
		t.Fatalf("expected NaN latitude to be invalid")
	}
	if got := (Coordinates{Lon: 1, Lat: 2}).CoordsToList(); got[0] != 1 || got[1] != 2 {
		t.Fatalf("CoordsToList() = %v", got)
	}
}
