package ports

import (
	"context"
	"errors"
)

// ErrNoRoute reports that the provider could not produce a drivable route for
// the given locations (unknown address, no path).
var ErrNoRoute = errors.New("no route found")

// Total driving distance and travel time of a resolved route.
type RouteResult struct {
	DistanceMeters  int
	DurationSeconds int
}

// DistanceKm converts the resolved distance to kilometres.
func (r RouteResult) DistanceKm() float64 {
	return float64(r.DistanceMeters) / 1000
}

// Contract for computing the driving distance of an ordered waypoint list.
type RouteResolver interface {
	// Report whether the provider is configured and able to take requests.
	Ready() bool
	// Resolve [origin, ...waypoints, destination] in the given order.
	// Waypoints are never reordered or optimized.
	ResolveRoute(ctx context.Context, locations []string) (RouteResult, error)
}

// Optional extension for resolvers whose credential comes from user settings.
type CredentialSetter interface {
	SetAPIKey(key string)
}
