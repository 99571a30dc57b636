package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"trip-estimator/internal/domain"
	"trip-estimator/internal/platform/metrics"
	"trip-estimator/internal/platform/obs"
	"trip-estimator/internal/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultCalculationTimeout = 30 * time.Second
	calculateAllLimit         = 5
)

type EstimatorOptions struct {
	// Timeout bounds a single route resolution. Zero selects 30s.
	Timeout time.Duration
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// Estimator owns the session state: the settings and the departure
// collection. Every mutation replaces the collection snapshot under a lock and
// is persisted; a failed write is logged and the in-memory state is kept.
//
// Route resolution runs outside the lock, so calculations of different
// departures overlap. A completion only ever writes its own departure.
type Estimator struct {
	resolver ports.RouteResolver
	repo     ports.StateRepository
	metrics  *metrics.Collector
	log      *zap.Logger
	timeout  time.Duration

	mu         sync.Mutex
	settings   domain.Settings
	departures domain.Collection
	machines   map[string]*calcMachine
}

// CalculationOutcome is the result of one departure in CalculateAll.
type CalculationOutcome struct {
	DepartureID string
	Departure   *domain.Departure
	Err         error
}

// NewEstimator restores the persisted state. A credential stored in the
// settings takes precedence over the one the resolver was built with.
func NewEstimator(
	ctx context.Context,
	resolver ports.RouteResolver,
	repo ports.StateRepository,
	opts EstimatorOptions,
) *Estimator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewCollector()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultCalculationTimeout
	}

	e := &Estimator{
		resolver:   resolver,
		repo:       repo,
		metrics:    m,
		log:        log,
		timeout:    timeout,
		settings:   repo.LoadSettings(ctx),
		departures: repo.LoadDepartures(ctx),
		machines:   make(map[string]*calcMachine),
	}

	if e.settings.ProviderConfigured() {
		if cs, ok := resolver.(ports.CredentialSetter); ok {
			cs.SetAPIKey(e.settings.APIKey)
		}
	}

	for _, d := range e.departures.Items() {
		initial := StateIdle
		if d.Calculated() {
			initial = StateResolved
		}
		e.machines[d.ID] = newCalcMachine(d.ID, initial, e.onStateChange)
	}
	e.metrics.Departures.Set(float64(e.departures.Len()))

	return e
}

func (e *Estimator) onStateChange(departureID, from, to string) {
	e.log.Debug("calculation state changed",
		zap.String("departure_id", departureID),
		zap.String("from", from),
		zap.String("to", to),
	)
}

// machine returns the state machine of a departure, creating it on first use.
// Caller holds e.mu.
func (e *Estimator) machine(id string) *calcMachine {
	if m, ok := e.machines[id]; ok {
		return m
	}
	m := newCalcMachine(id, StateIdle, e.onStateChange)
	e.machines[id] = m
	return m
}

// commit swaps in the next snapshot and persists it. Caller holds e.mu.
func (e *Estimator) commit(ctx context.Context, next domain.Collection) {
	e.departures = next
	e.metrics.Departures.Set(float64(next.Len()))

	if err := e.repo.SaveDepartures(ctx, next); err != nil {
		e.metrics.PersistErrors.WithLabelValues("departures").Inc()
		e.log.Error("persist departures failed", zap.Error(err))
	}
}

// Settings returns the current settings.
func (e *Estimator) Settings() domain.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// UpdateSettings merges a partial edit and persists it. A changed credential
// is handed to the resolver immediately.
func (e *Estimator) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := e.settings.Apply(patch)
	if err != nil {
		return e.settings, fmt.Errorf("update settings: %w", err)
	}
	e.settings = next

	if patch.APIKey != nil {
		if cs, ok := e.resolver.(ports.CredentialSetter); ok {
			cs.SetAPIKey(next.APIKey)
		}
	}

	if err := e.repo.SaveSettings(ctx, next); err != nil {
		e.metrics.PersistErrors.WithLabelValues("settings").Inc()
		e.log.Error("persist settings failed", zap.Error(err))
	}

	return next, nil
}

// ResolverReady reports whether calculations can be started at all.
func (e *Estimator) ResolverReady() bool {
	return e.resolver.Ready()
}

// Departures returns the current snapshot.
func (e *Estimator) Departures() domain.Collection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.departures
}

func (e *Estimator) Departure(id string) (*domain.Departure, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.departures.Find(id)
	if !ok {
		return nil, fmt.Errorf("departure %q: %w", id, domain.ErrDepartureNotFound)
	}
	return d, nil
}

// Totals aggregates the current snapshot.
func (e *Estimator) Totals() domain.GrandTotal {
	return e.Departures().Totals()
}

// CalculationState returns the lifecycle state of a departure's calculation.
func (e *Estimator) CalculationState(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if m, ok := e.machines[id]; ok {
		return m.Current()
	}
	return ""
}

func (e *Estimator) CreateDeparture(ctx context.Context) *domain.Departure {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, d := e.departures.Create()
	e.machine(d.ID)
	e.commit(ctx, next)
	return d
}

// RemoveDeparture deletes a departure and renumbers the rest. The last one
// cannot be removed. A calculation still in flight for it is discarded when
// it completes.
func (e *Estimator) RemoveDeparture(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.departures.Find(id); !ok {
		return fmt.Errorf("remove departure %q: %w", id, domain.ErrDepartureNotFound)
	}
	if e.departures.Len() <= 1 {
		return fmt.Errorf("remove departure %q: %w", id, ErrLastDeparture)
	}

	delete(e.machines, id)
	e.commit(ctx, e.departures.Remove(id))
	return nil
}

// UpdateDeparture renames or collapses a departure. Nil arguments are left
// untouched.
func (e *Estimator) UpdateDeparture(ctx context.Context, id string, name *string, collapsed *bool) (*domain.Departure, error) {
	return e.mutate(ctx, id, func(c domain.Collection) (domain.Collection, error) {
		return c.Update(id, domain.DeparturePatch{Name: name, IsCollapsed: collapsed}), nil
	})
}

func (e *Estimator) ToggleCollapsed(ctx context.Context, id string) (*domain.Departure, error) {
	return e.mutate(ctx, id, func(c domain.Collection) (domain.Collection, error) {
		return c.ToggleCollapsed(id), nil
	})
}

// AddStop appends an empty intermediate stop and returns it.
func (e *Estimator) AddStop(ctx context.Context, id string) (domain.Address, error) {
	var stop domain.Address
	_, err := e.mutate(ctx, id, func(c domain.Collection) (domain.Collection, error) {
		var next domain.Collection
		next, stop = c.AddStop(id)
		return next, nil
	})
	return stop, err
}

func (e *Estimator) RemoveStop(ctx context.Context, id, stopID string) (*domain.Departure, error) {
	return e.mutate(ctx, id, func(c domain.Collection) (domain.Collection, error) {
		if err := checkAddress(c, id, domain.RoleIntermediate, stopID); err != nil {
			return c, err
		}
		return c.RemoveStop(id, stopID), nil
	})
}

// UpdateStopKits stores the kits of a stop; negative input becomes 0.
func (e *Estimator) UpdateStopKits(ctx context.Context, id, stopID string, kits int) (*domain.Departure, error) {
	return e.mutate(ctx, id, func(c domain.Collection) (domain.Collection, error) {
		if err := checkAddress(c, id, domain.RoleIntermediate, stopID); err != nil {
			return c, err
		}
		return c.UpdateStopKits(id, stopID, kits), nil
	})
}

// UpdateAddress overwrites the free text of one address. stopID is only used
// for intermediate stops.
func (e *Estimator) UpdateAddress(ctx context.Context, id string, role domain.AddressRole, stopID, value string) (*domain.Departure, error) {
	return e.mutate(ctx, id, func(c domain.Collection) (domain.Collection, error) {
		if err := checkAddress(c, id, role, stopID); err != nil {
			return c, err
		}
		return c.UpdateAddress(id, role, value, stopID), nil
	})
}

// SelectPlace applies an autocomplete suggestion to one address.
func (e *Estimator) SelectPlace(
	ctx context.Context,
	id string,
	role domain.AddressRole,
	stopID string,
	place ports.PlaceSuggestion,
) (*domain.Departure, error) {
	return e.mutate(ctx, id, func(c domain.Collection) (domain.Collection, error) {
		if err := checkAddress(c, id, role, stopID); err != nil {
			return c, err
		}
		return c.SelectPlace(id, role, stopID, place.Label, place.PlaceID), nil
	})
}

// UseHomeAddress copies the home address from the settings into the start or
// return address.
func (e *Estimator) UseHomeAddress(ctx context.Context, id string, role domain.AddressRole) (*domain.Departure, error) {
	return e.mutate(ctx, id, func(c domain.Collection) (domain.Collection, error) {
		if role != domain.RoleStart && role != domain.RoleReturn {
			return c, fmt.Errorf("role %q: %w", role, domain.ErrUnknownRole)
		}
		home := domain.Address{Value: e.settings.HomeAddress}
		if home.Blank() {
			return c, ErrNoHomeAddress
		}
		return c.UpdateAddress(id, role, e.settings.HomeAddress, ""), nil
	})
}

// mutate applies fn to the snapshot and commits the result when it changed.
func (e *Estimator) mutate(
	ctx context.Context,
	id string,
	fn func(c domain.Collection) (domain.Collection, error),
) (*domain.Departure, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.departures.Find(id); !ok {
		return nil, fmt.Errorf("departure %q: %w", id, domain.ErrDepartureNotFound)
	}

	next, err := fn(e.departures)
	if err != nil {
		return nil, fmt.Errorf("departure %q: %w", id, err)
	}

	e.commit(ctx, next)

	d, _ := next.Find(id)
	return d, nil
}

func checkAddress(c domain.Collection, id string, role domain.AddressRole, stopID string) error {
	d, ok := c.Find(id)
	if !ok {
		return domain.ErrDepartureNotFound
	}

	switch role {
	case domain.RoleStart, domain.RoleReturn:
		return nil
	case domain.RoleIntermediate:
		for _, s := range d.IntermediateStops {
			if s.ID == stopID {
				return nil
			}
		}
		return fmt.Errorf("stop %q: %w", stopID, domain.ErrStopNotFound)
	default:
		return fmt.Errorf("role %q: %w", role, domain.ErrUnknownRole)
	}
}

// Calculate resolves the route of one departure and prices it with the
// settings current at the time of the call.
//
// The departure is returned with the error for a failed resolution; its
// estimate is cleared then. The request is not cancelled when ctx is, only
// the calculation timeout ends it early.
func (e *Estimator) Calculate(ctx context.Context, id string) (_ *domain.Departure, err error) {
	defer obs.Time(ctx, e.log, "estimator.Calculate")(&err)

	e.mu.Lock()
	d, ok := e.departures.Find(id)
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("calculate %q: %w", id, domain.ErrDepartureNotFound)
	}

	m := e.machine(id)
	if !m.Can(EventStart) {
		e.mu.Unlock()
		e.metrics.Calculations.WithLabelValues("rejected").Inc()
		return d, fmt.Errorf("calculate %q: %w", id, ErrCalculationInProgress)
	}
	if !d.HasAddresses() {
		e.mu.Unlock()
		e.metrics.Calculations.WithLabelValues("rejected").Inc()
		return d, fmt.Errorf("calculate %q: %w", id, ErrMissingAddress)
	}
	if !e.resolver.Ready() {
		e.mu.Unlock()
		e.metrics.Calculations.WithLabelValues("rejected").Inc()
		return d, fmt.Errorf("calculate %q: %w", id, ErrResolverUnavailable)
	}

	if err := m.Trigger(EventStart); err != nil {
		e.mu.Unlock()
		return d, fmt.Errorf("calculate %q: %w", id, err)
	}

	settings := e.settings
	locations := d.Locations()
	calculating := true
	e.commit(ctx, e.departures.Update(id, domain.DeparturePatch{IsCalculating: &calculating}))
	e.mu.Unlock()

	route, rerr := e.resolve(ctx, locations)

	var estimate domain.Estimate
	if rerr == nil {
		estimate, rerr = domain.CalculateCost(route.DistanceKm(), settings.AverageConsumption, settings.FuelPrice)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.departures.Find(id); !ok {
		e.metrics.Calculations.WithLabelValues("discarded").Inc()
		e.log.Info("departure removed during calculation, result discarded", zap.String("departure_id", id))
		return nil, fmt.Errorf("calculate %q: %w", id, domain.ErrDepartureNotFound)
	}

	done := false
	if rerr != nil {
		if err := m.Trigger(EventFail); err != nil {
			e.log.Warn("calculation state", zap.String("departure_id", id), zap.Error(err))
		}
		e.metrics.Calculations.WithLabelValues("failed").Inc()
		e.commit(ctx, e.departures.Update(id, domain.DeparturePatch{IsCalculating: &done, ClearResult: true}))

		d, _ = e.departures.Find(id)
		return d, fmt.Errorf("calculate %q: %w: %w", id, ErrResolutionFailed, rerr)
	}

	if err := m.Trigger(EventResolve); err != nil {
		e.log.Warn("calculation state", zap.String("departure_id", id), zap.Error(err))
	}
	e.metrics.Calculations.WithLabelValues("resolved").Inc()
	e.commit(ctx, e.departures.Update(id, domain.DeparturePatch{IsCalculating: &done, Result: &estimate}))

	d, _ = e.departures.Find(id)
	return d, nil
}

// resolve calls the resolver with the calculation timeout.
func (e *Estimator) resolve(ctx context.Context, locations []string) (ports.RouteResult, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	e.metrics.CalculationsActive.Inc()
	defer e.metrics.CalculationsActive.Dec()

	start := time.Now()
	r, err := e.resolver.ResolveRoute(rctx, locations)
	e.metrics.CalculationDuration.Observe(time.Since(start).Seconds())

	if err == nil && r.DistanceMeters < 0 {
		return ports.RouteResult{}, fmt.Errorf("negative distance %d", r.DistanceMeters)
	}
	return r, err
}

// CalculateAll calculates every departure whose start and return addresses
// are filled in, a few at a time. Each departure gets its own outcome; one
// failure never stops the others.
func (e *Estimator) CalculateAll(ctx context.Context) ([]CalculationOutcome, error) {
	if !e.resolver.Ready() {
		return nil, fmt.Errorf("calculate all: %w", ErrResolverUnavailable)
	}

	var ids []string
	for _, d := range e.Departures().Items() {
		if d.HasAddresses() {
			ids = append(ids, d.ID)
		}
	}

	outcomes := make([]CalculationOutcome, len(ids))

	var g errgroup.Group
	g.SetLimit(calculateAllLimit)
	for i, id := range ids {
		g.Go(func() error {
			d, err := e.Calculate(ctx, id)
			outcomes[i] = CalculationOutcome{DepartureID: id, Departure: d, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil && !errors.Is(o.Err, ErrCalculationInProgress) {
			failed++
		}
	}
	e.log.Info("calculate all finished", zap.Int("departures", len(ids)), zap.Int("failed", failed))

	return outcomes, nil
}
