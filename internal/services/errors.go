package services

import "errors"

var (
	// ErrMissingAddress: the start or return address is blank.
	ErrMissingAddress = errors.New("start and return addresses are required")
	// ErrResolverUnavailable is the configuration error: no routing credential.
	ErrResolverUnavailable = errors.New("route provider is not configured")
	// ErrCalculationInProgress rejects a second request for the same departure.
	ErrCalculationInProgress = errors.New("calculation already in progress")
	// ErrResolutionFailed wraps whatever the resolver reported.
	ErrResolutionFailed = errors.New("route could not be resolved")
	ErrLastDeparture    = errors.New("the last departure cannot be removed")
	ErrNoHomeAddress    = errors.New("home address is not set")
)
