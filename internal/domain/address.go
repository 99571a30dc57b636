package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AddressRole selects which address of a departure an edit targets.
type AddressRole string

const (
	RoleStart        AddressRole = "start"
	RoleReturn       AddressRole = "return"
	RoleIntermediate AddressRole = "intermediate"
)

// ParseAddressRole validates a role received from outside the domain.
func ParseAddressRole(s string) (AddressRole, error) {
	switch r := AddressRole(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStart, RoleReturn, RoleIntermediate:
		return r, nil
	default:
		return "", fmt.Errorf("parse address role %q: %w", s, ErrUnknownRole)
	}
}

// Represents a single location reference of a departure.
// PlaceID is set only when the value came from a provider suggestion and is
// advisory. Kits is meaningful for intermediate stops and is never negative.
type Address struct {
	ID      string `json:"id"`
	Value   string `json:"value"`
	PlaceID string `json:"placeId,omitempty"`
	Kits    int    `json:"kits,omitempty"`
}

// newID is swapped in tests that need predictable identifiers.
var newID = uuid.NewString

func NewAddress() Address {
	return Address{ID: newID()}
}

// Blank reports whether the address holds no usable text.
func (a Address) Blank() bool {
	return strings.TrimSpace(a.Value) == ""
}
