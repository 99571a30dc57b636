package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"trip-estimator/internal/domain"
	"trip-estimator/internal/ports"

	"go.uber.org/zap"
)

// Fixed keys of the two persisted records.
const (
	SettingsKey   = "route-estimator-settings"
	DeparturesKey = "route-estimator-departures"
)

// StateStore persists settings and departures as two independent JSON records
// in a BlobStore. Loads never fail: absent or malformed records fall back to
// defaults and are only logged.
type StateStore struct {
	blobs ports.BlobStore
	log   *zap.Logger
}

func NewStateStore(blobs ports.BlobStore, log *zap.Logger) *StateStore {
	return &StateStore{blobs: blobs, log: log}
}

// LoadSettings merges the stored record over the defaults, so fields missing
// from an older record keep their default value.
func (s *StateStore) LoadSettings(ctx context.Context) domain.Settings {
	raw, ok := s.read(ctx, SettingsKey)
	if !ok {
		return domain.DefaultSettings()
	}

	settings := domain.DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.log.Warn("stored settings are malformed, using defaults", zap.Error(err))
		return domain.DefaultSettings()
	}

	return settings.Normalize()
}

func (s *StateStore) SaveSettings(ctx context.Context, settings domain.Settings) error {
	b, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("save settings: marshal: %w", err)
	}
	if err := s.blobs.Put(ctx, SettingsKey, b); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadDepartures restores the collection. Nothing is in flight after a
// restart, so calculating flags are cleared.
func (s *StateStore) LoadDepartures(ctx context.Context) domain.Collection {
	raw, ok := s.read(ctx, DeparturesKey)
	if !ok {
		return domain.DefaultCollection()
	}

	var items []*domain.Departure
	if err := json.Unmarshal(raw, &items); err != nil {
		s.log.Warn("stored departures are malformed, starting fresh", zap.Error(err))
		return domain.DefaultCollection()
	}

	clean, err := sanitizeDepartures(items)
	if err != nil {
		s.log.Warn("stored departures are inconsistent, starting fresh", zap.Error(err))
		return domain.DefaultCollection()
	}

	return domain.NewCollection(clean...)
}

func (s *StateStore) SaveDepartures(ctx context.Context, c domain.Collection) error {
	b, err := json.Marshal(c.Items())
	if err != nil {
		return fmt.Errorf("save departures: marshal: %w", err)
	}
	if err := s.blobs.Put(ctx, DeparturesKey, b); err != nil {
		return fmt.Errorf("save departures: %w", err)
	}
	return nil
}

func (s *StateStore) read(ctx context.Context, key string) ([]byte, bool) {
	raw, err := s.blobs.Get(ctx, key)
	if errors.Is(err, ports.ErrBlobNotFound) {
		return nil, false
	}
	if err != nil {
		s.log.Warn("read persisted state failed, using defaults", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return raw, true
}

func sanitizeDepartures(items []*domain.Departure) ([]*domain.Departure, error) {
	out := make([]*domain.Departure, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for i, d := range items {
		if d == nil {
			continue
		}
		if d.ID == "" {
			return nil, fmt.Errorf("departure #%d has no id", i+1)
		}
		if _, ok := seen[d.ID]; ok {
			return nil, fmt.Errorf("departure id %q is duplicated", d.ID)
		}
		seen[d.ID] = struct{}{}

		stops := make(map[string]struct{}, len(d.IntermediateStops))
		for j := range d.IntermediateStops {
			stop := &d.IntermediateStops[j]
			if stop.ID == "" {
				return nil, fmt.Errorf("departure %q: stop #%d has no id", d.ID, j+1)
			}
			if _, ok := stops[stop.ID]; ok {
				return nil, fmt.Errorf("departure %q: stop id %q is duplicated", d.ID, stop.ID)
			}
			stops[stop.ID] = struct{}{}
			stop.Kits = domain.ClampKits(stop.Kits)
		}

		if d.Result != nil && !d.Result.Valid() {
			d.Result = nil
		}
		d.IsCalculating = false
		out = append(out, d)
	}

	if len(out) == 0 {
		return nil, errors.New("no departures")
	}
	return out, nil
}
