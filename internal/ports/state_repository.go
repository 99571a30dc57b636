package ports

import (
	"context"
	"trip-estimator/internal/domain"
)

// Port: persistence of the user's settings and departure collection.
// Loads never fail; implementations fall back to defaults.
type StateRepository interface {
	LoadSettings(ctx context.Context) domain.Settings
	SaveSettings(ctx context.Context, settings domain.Settings) error
	LoadDepartures(ctx context.Context) domain.Collection
	SaveDepartures(ctx context.Context, c domain.Collection) error
}
