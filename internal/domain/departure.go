package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

const departureNamePrefix = "Departure "

// Estimate is the computed outcome of one departure.
// The three figures only ever exist together.
type Estimate struct {
	DistanceKm float64
	FuelLiters float64
	TotalCost  float64
}

// Valid reports whether every figure is finite and not negative.
func (e Estimate) Valid() bool {
	for _, v := range [...]float64{e.DistanceKm, e.FuelLiters, e.TotalCost} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

// Represents one round trip: start, ordered intermediate stops, return, and
// the estimate once a calculation has resolved.
//
// A Departure held by a Collection is shared between snapshots and must be
// treated as read-only; all changes go through Collection operations.
type Departure struct {
	ID                string
	Name              string
	StartAddress      Address
	IntermediateStops []Address
	ReturnAddress     Address

	// Result is nil until a calculation resolves.
	Result *Estimate

	IsCalculating bool
	IsCollapsed   bool
}

func departureName(position int) string {
	return departureNamePrefix + strconv.Itoa(position)
}

// NewDeparture builds an empty departure named after its 1-based position.
func NewDeparture(position int) *Departure {
	return &Departure{
		ID:                newID(),
		Name:              departureName(position),
		StartAddress:      NewAddress(),
		IntermediateStops: []Address{},
		ReturnAddress:     NewAddress(),
	}
}

// Calculated reports whether the departure carries a resolved estimate.
func (d *Departure) Calculated() bool {
	return d.Result != nil
}

// HasAddresses reports whether both ends of the trip are filled in.
func (d *Departure) HasAddresses() bool {
	return !d.StartAddress.Blank() && !d.ReturnAddress.Blank()
}

// Locations returns the ordered waypoint list handed to a route resolver:
// start, every non-blank intermediate stop in entry order, return.
func (d *Departure) Locations() []string {
	out := make([]string, 0, 2+len(d.IntermediateStops))
	out = append(out, d.StartAddress.Value)
	for _, s := range d.IntermediateStops {
		if s.Blank() {
			continue
		}
		out = append(out, s.Value)
	}
	out = append(out, d.ReturnAddress.Value)
	return out
}

// TotalKits sums the kits of every intermediate stop.
func (d *Departure) TotalKits() int {
	total := 0
	for _, s := range d.IntermediateStops {
		total += s.Kits
	}
	return total
}

func (d *Departure) clone() *Departure {
	cp := *d
	cp.IntermediateStops = make([]Address, len(d.IntermediateStops))
	copy(cp.IntermediateStops, d.IntermediateStops)
	if d.Result != nil {
		r := *d.Result
		cp.Result = &r
	}
	return &cp
}

type departureJSON struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	StartAddress      Address   `json:"startAddress"`
	IntermediateStops []Address `json:"intermediateStops"`
	ReturnAddress     Address   `json:"returnAddress"`
	Distance          *float64  `json:"distance"`
	FuelConsumption   *float64  `json:"fuelConsumption"`
	TotalCost         *float64  `json:"totalCost"`
	IsCalculating     bool      `json:"isCalculating"`
	IsCollapsed       bool      `json:"isCollapsed"`
}

// MarshalJSON flattens the estimate into three nullable fields.
func (d Departure) MarshalJSON() ([]byte, error) {
	out := departureJSON{
		ID:                d.ID,
		Name:              d.Name,
		StartAddress:      d.StartAddress,
		IntermediateStops: d.IntermediateStops,
		ReturnAddress:     d.ReturnAddress,
		IsCalculating:     d.IsCalculating,
		IsCollapsed:       d.IsCollapsed,
	}
	if out.IntermediateStops == nil {
		out.IntermediateStops = []Address{}
	}
	if d.Result != nil {
		dist, fuel, cost := d.Result.DistanceKm, d.Result.FuelLiters, d.Result.TotalCost
		out.Distance, out.FuelConsumption, out.TotalCost = &dist, &fuel, &cost
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the flat layout. A partially populated or invalid
// result trio is treated as not calculated.
func (d *Departure) UnmarshalJSON(b []byte) error {
	var in departureJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	*d = Departure{
		ID:                in.ID,
		Name:              in.Name,
		StartAddress:      in.StartAddress,
		IntermediateStops: in.IntermediateStops,
		ReturnAddress:     in.ReturnAddress,
		IsCalculating:     in.IsCalculating,
		IsCollapsed:       in.IsCollapsed,
	}
	if d.IntermediateStops == nil {
		d.IntermediateStops = []Address{}
	}
	if in.Distance != nil && in.FuelConsumption != nil && in.TotalCost != nil {
		e := Estimate{
			DistanceKm: *in.Distance,
			FuelLiters: *in.FuelConsumption,
			TotalCost:  *in.TotalCost,
		}
		if e.Valid() {
			d.Result = &e
		}
	}
	return nil
}
