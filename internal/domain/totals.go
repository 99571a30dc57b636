package domain

// GrandTotal sums every departure of a snapshot.
type GrandTotal struct {
	DistanceKm float64 `json:"distance"`
	FuelLiters float64 `json:"fuelConsumption"`
	TotalCost  float64 `json:"totalCost"`
	Kits       int     `json:"kits"`
}

// Totals is recomputed from the full list on every call. Departures without an
// estimate contribute nothing to the distance, fuel and cost sums; their kits
// still count.
func Totals(departures []*Departure) GrandTotal {
	var t GrandTotal
	for _, d := range departures {
		if d.Result != nil {
			t.DistanceKm += d.Result.DistanceKm
			t.FuelLiters += d.Result.FuelLiters
			t.TotalCost += d.Result.TotalCost
		}
		t.Kits += d.TotalKits()
	}
	return t
}

// IsEmpty reports whether there is nothing worth showing yet.
func (t GrandTotal) IsEmpty() bool {
	return t.DistanceKm == 0 && t.Kits == 0
}
