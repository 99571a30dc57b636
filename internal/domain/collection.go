package domain

// Collection is an immutable, ordered snapshot of departures.
//
// Every mutating operation returns a new Collection. Departures that an
// operation does not touch keep the same pointer in the new snapshot, so an
// observer can detect exactly what changed by comparing pointers. Operations
// addressed at an unknown departure or stop return the receiver unchanged.
type Collection struct {
	items []*Departure
}

// DeparturePatch carries the fields Update merges into a departure.
// Nil fields are left untouched. ClearResult drops the estimate; Result
// replaces it. Setting both is resolved in favour of Result.
type DeparturePatch struct {
	Name          *string
	IsCollapsed   *bool
	IsCalculating *bool
	Result        *Estimate
	ClearResult   bool
}

func NewCollection(items ...*Departure) Collection {
	cp := make([]*Departure, len(items))
	copy(cp, items)
	return Collection{items: cp}
}

// DefaultCollection is the state of a fresh session: one empty departure.
func DefaultCollection() Collection {
	return Collection{items: []*Departure{NewDeparture(1)}}
}

func (c Collection) Len() int { return len(c.items) }

// Items returns the departures in order. The slice is a copy; the departures
// are shared and read-only.
func (c Collection) Items() []*Departure {
	cp := make([]*Departure, len(c.items))
	copy(cp, c.items)
	return cp
}

// Find returns the departure with the given id.
func (c Collection) Find(id string) (*Departure, bool) {
	i := c.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return c.items[i], true
}

func (c Collection) indexOf(id string) int {
	for i, d := range c.items {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Create appends an empty departure named after the new collection size.
func (c Collection) Create() (Collection, *Departure) {
	d := NewDeparture(len(c.items) + 1)

	items := make([]*Departure, 0, len(c.items)+1)
	items = append(items, c.items...)
	items = append(items, d)

	return Collection{items: items}, d
}

// Remove deletes the departure and renames every remaining one to
// "Departure <position>", so names always follow current order.
// The collection does not enforce a minimum size.
func (c Collection) Remove(id string) Collection {
	idx := c.indexOf(id)
	if idx < 0 {
		return c
	}

	items := make([]*Departure, 0, len(c.items)-1)
	for i, d := range c.items {
		if i == idx {
			continue
		}

		name := departureName(len(items) + 1)
		if d.Name != name {
			d = d.clone()
			d.Name = name
		}
		items = append(items, d)
	}

	return Collection{items: items}
}

// Update merges the patch into the matching departure.
func (c Collection) Update(id string, patch DeparturePatch) Collection {
	return c.modify(id, func(d *Departure) bool {
		if patch.Name != nil {
			d.Name = *patch.Name
		}
		if patch.IsCollapsed != nil {
			d.IsCollapsed = *patch.IsCollapsed
		}
		if patch.IsCalculating != nil {
			d.IsCalculating = *patch.IsCalculating
		}
		if patch.ClearResult {
			d.Result = nil
		}
		if patch.Result != nil {
			r := *patch.Result
			d.Result = &r
		}
		return true
	})
}

// ToggleCollapsed flips the presentation-only collapsed flag.
func (c Collection) ToggleCollapsed(id string) Collection {
	return c.modify(id, func(d *Departure) bool {
		d.IsCollapsed = !d.IsCollapsed
		return true
	})
}

// AddStop appends an empty intermediate stop with zero kits. The returned
// address is the new stop; its ID is empty when the departure is unknown.
func (c Collection) AddStop(departureID string) (Collection, Address) {
	if _, ok := c.Find(departureID); !ok {
		return c, Address{}
	}

	stop := NewAddress()
	next := c.modify(departureID, func(d *Departure) bool {
		d.IntermediateStops = append(d.IntermediateStops, stop)
		return true
	})
	return next, stop
}

// RemoveStop removes one intermediate stop. Stops carry no display name, so
// nothing is renumbered.
func (c Collection) RemoveStop(departureID, stopID string) Collection {
	return c.modify(departureID, func(d *Departure) bool {
		i := stopIndex(d.IntermediateStops, stopID)
		if i < 0 {
			return false
		}
		d.IntermediateStops = append(d.IntermediateStops[:i], d.IntermediateStops[i+1:]...)
		return true
	})
}

// UpdateAddress overwrites the value of the start, return or one intermediate
// address. stopID is only consulted for RoleIntermediate.
func (c Collection) UpdateAddress(departureID string, role AddressRole, value, stopID string) Collection {
	return c.modify(departureID, func(d *Departure) bool {
		a := addressFor(d, role, stopID)
		if a == nil {
			return false
		}
		a.Value = value
		return true
	})
}

// SelectPlace applies a provider suggestion: the value is overwritten with the
// suggestion label and the place identifier recorded.
func (c Collection) SelectPlace(departureID string, role AddressRole, stopID, value, placeID string) Collection {
	return c.modify(departureID, func(d *Departure) bool {
		a := addressFor(d, role, stopID)
		if a == nil {
			return false
		}
		a.Value = value
		a.PlaceID = placeID
		return true
	})
}

// UpdateStopKits overwrites a stop's kits; negative input is stored as 0.
func (c Collection) UpdateStopKits(departureID, stopID string, kits int) Collection {
	return c.modify(departureID, func(d *Departure) bool {
		i := stopIndex(d.IntermediateStops, stopID)
		if i < 0 {
			return false
		}
		d.IntermediateStops[i].Kits = ClampKits(kits)
		return true
	})
}

// Totals aggregates the snapshot.
func (c Collection) Totals() GrandTotal {
	return Totals(c.items)
}

// modify copies the matching departure, applies fn to the copy and swaps it
// into a new snapshot. When fn reports no change the receiver is returned.
func (c Collection) modify(id string, fn func(d *Departure) bool) Collection {
	idx := c.indexOf(id)
	if idx < 0 {
		return c
	}

	d := c.items[idx].clone()
	if !fn(d) {
		return c
	}

	items := make([]*Departure, len(c.items))
	copy(items, c.items)
	items[idx] = d

	return Collection{items: items}
}

func addressFor(d *Departure, role AddressRole, stopID string) *Address {
	switch role {
	case RoleStart:
		return &d.StartAddress
	case RoleReturn:
		return &d.ReturnAddress
	case RoleIntermediate:
		i := stopIndex(d.IntermediateStops, stopID)
		if i < 0 {
			return nil
		}
		return &d.IntermediateStops[i]
	default:
		return nil
	}
}

func stopIndex(stops []Address, stopID string) int {
	for i, s := range stops {
		if s.ID == stopID {
			return i
		}
	}
	return -1
}
