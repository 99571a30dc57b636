package domain

import (
	"fmt"
	"math"
)

// CalculateCost derives fuel volume and cost for a resolved distance:
//
//	fuel = distanceKm * consumptionPer100Km / 100
//	cost = fuel * unitPrice
//
// It is only called once a route has resolved; an unresolved departure keeps
// a nil estimate rather than a zero one.
func CalculateCost(distanceKm, consumptionPer100Km, unitPrice float64) (Estimate, error) {
	for _, v := range []float64{distanceKm, consumptionPer100Km, unitPrice} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Estimate{}, fmt.Errorf(
				"calculate cost: distance=%v consumption=%v price=%v: %w",
				distanceKm, consumptionPer100Km, unitPrice, ErrInvalidCostInput,
			)
		}
	}

	fuel := distanceKm * consumptionPer100Km / 100

	return Estimate{
		DistanceKm: distanceKm,
		FuelLiters: fuel,
		TotalCost:  fuel * unitPrice,
	}, nil
}
