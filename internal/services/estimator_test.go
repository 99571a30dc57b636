package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
	"trip-estimator/internal/adapters/routing"
	"trip-estimator/internal/adapters/storage"
	"trip-estimator/internal/domain"
	"trip-estimator/internal/ports"

	"go.uber.org/zap"
)

// gateResolver blocks every request until released, so tests can observe
// the in-flight state.
type gateResolver struct {
	started chan []string
	release chan struct{}
	result  ports.RouteResult
	calls   atomic.Int32
}

func newGateResolver(meters int) *gateResolver {
	return &gateResolver{
		started: make(chan []string, 10),
		release: make(chan struct{}),
		result:  ports.RouteResult{DistanceMeters: meters},
	}
}

func (g *gateResolver) Ready() bool { return true }

func (g *gateResolver) ResolveRoute(ctx context.Context, locations []string) (ports.RouteResult, error) {
	g.calls.Add(1)
	g.started <- locations
	select {
	case <-g.release:
		return g.result, nil
	case <-ctx.Done():
		return ports.RouteResult{}, ctx.Err()
	}
}

func newTestEstimator(t *testing.T, resolver ports.RouteResolver) (*Estimator, *storage.StateStore) {
	t.Helper()

	store := storage.NewStateStore(storage.NewMemoryBlobStore(), zap.NewNop())
	e := NewEstimator(context.Background(), resolver, store, EstimatorOptions{Timeout: time.Second})
	return e, store
}

func firstID(t *testing.T, e *Estimator) string {
	t.Helper()
	items := e.Departures().Items()
	if len(items) == 0 {
		t.Fatalf("expected at least one departure")
	}
	return items[0].ID
}

func fillAddresses(t *testing.T, e *Estimator, id, start, ret string) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.UpdateAddress(ctx, id, domain.RoleStart, "", start); err != nil {
		t.Fatalf("update start: %v", err)
	}
	if _, err := e.UpdateAddress(ctx, id, domain.RoleReturn, "", ret); err != nil {
		t.Fatalf("update return: %v", err)
	}
}

func TestCalculateResolves(t *testing.T) {
	resolver := routing.NewMockRouteResolver([]routing.MockRoute{
		{Locations: []string{"Cluj", "Turda", "Cluj"}, Meters: 100000, Seconds: 3600},
	})
	e, _ := newTestEstimator(t, resolver)
	ctx := context.Background()
	id := firstID(t, e)

	fillAddresses(t, e, id, "Cluj", "Cluj")

	// A blank stop is skipped, a filled one is visited.
	if _, err := e.AddStop(ctx, id); err != nil {
		t.Fatalf("add stop: %v", err)
	}
	stop, err := e.AddStop(ctx, id)
	if err != nil {
		t.Fatalf("add stop: %v", err)
	}
	if _, err := e.UpdateAddress(ctx, id, domain.RoleIntermediate, stop.ID, "Turda"); err != nil {
		t.Fatalf("update stop: %v", err)
	}

	d, err := e.Calculate(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Result == nil {
		t.Fatalf("expected a result")
	}
	if d.Result.DistanceKm != 100 || d.Result.FuelLiters != 7.5 || d.Result.TotalCost != 56.25 {
		t.Fatalf("unexpected estimate %+v", *d.Result)
	}
	if d.IsCalculating {
		t.Fatalf("expected calculating flag to be cleared")
	}
	if got := e.CalculationState(id); got != StateResolved {
		t.Fatalf("expected state %q, got %q", StateResolved, got)
	}
}

func TestCalculatePreconditions(t *testing.T) {
	resolver := routing.NewMockRouteResolver(nil)
	e, _ := newTestEstimator(t, resolver)
	ctx := context.Background()
	id := firstID(t, e)

	if _, err := e.Calculate(ctx, id); !errors.Is(err, ErrMissingAddress) {
		t.Fatalf("expected ErrMissingAddress, got %v", err)
	}

	fillAddresses(t, e, id, "Cluj", "   ")
	if _, err := e.Calculate(ctx, id); !errors.Is(err, ErrMissingAddress) {
		t.Fatalf("expected ErrMissingAddress for blank return, got %v", err)
	}

	fillAddresses(t, e, id, "Cluj", "Dej")
	resolver.SetAPIKey("")
	if _, err := e.Calculate(ctx, id); !errors.Is(err, ErrResolverUnavailable) {
		t.Fatalf("expected ErrResolverUnavailable, got %v", err)
	}

	if _, err := e.Calculate(ctx, "missing"); !errors.Is(err, domain.ErrDepartureNotFound) {
		t.Fatalf("expected ErrDepartureNotFound, got %v", err)
	}

	if n := len(resolver.Calls()); n != 0 {
		t.Fatalf("expected no resolver calls, got %d", n)
	}
	if got := e.CalculationState(id); got != StateIdle {
		t.Fatalf("expected state %q, got %q", StateIdle, got)
	}
}

func TestUpdateSettingsEnablesResolver(t *testing.T) {
	resolver := routing.NewMockRouteResolver(nil)
	resolver.SetAPIKey("")
	e, store := newTestEstimator(t, resolver)
	ctx := context.Background()

	key := " secret "
	s, err := e.UpdateSettings(ctx, domain.SettingsPatch{APIKey: &key})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.APIKey != "secret" {
		t.Fatalf("expected trimmed key, got %q", s.APIKey)
	}
	if !resolver.Ready() {
		t.Fatalf("expected resolver to be ready")
	}
	if got := store.LoadSettings(ctx).APIKey; got != "secret" {
		t.Fatalf("expected persisted key, got %q", got)
	}

	bad := "Diesel"
	if _, err := e.UpdateSettings(ctx, domain.SettingsPatch{FuelType: &bad}); !errors.Is(err, domain.ErrUnknownFuelType) {
		t.Fatalf("expected ErrUnknownFuelType, got %v", err)
	}

	negative := -3.0
	s, err = e.UpdateSettings(ctx, domain.SettingsPatch{FuelPrice: &negative})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.FuelPrice != 0 {
		t.Fatalf("expected clamped price, got %v", s.FuelPrice)
	}
}

func TestCalculateUsesSettingsAtTrigger(t *testing.T) {
	resolver := newGateResolver(100000)
	e, _ := newTestEstimator(t, resolver)
	ctx := context.Background()
	id := firstID(t, e)
	fillAddresses(t, e, id, "Cluj", "Dej")

	type result struct {
		d   *domain.Departure
		err error
	}
	done := make(chan result, 1)
	go func() {
		d, err := e.Calculate(ctx, id)
		done <- result{d, err}
	}()

	<-resolver.started

	price := 10.0
	if _, err := e.UpdateSettings(ctx, domain.SettingsPatch{FuelPrice: &price}); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	close(resolver.release)
	r := <-done
	if r.err != nil {
		t.Fatalf("unexpected error: %v", r.err)
	}
	if r.d.Result.TotalCost != 56.25 {
		t.Fatalf("expected cost priced at 7.5, got %v", r.d.Result.TotalCost)
	}
}

func TestCalculateAtMostOneInFlight(t *testing.T) {
	resolver := newGateResolver(50000)
	e, _ := newTestEstimator(t, resolver)
	ctx := context.Background()
	id := firstID(t, e)
	fillAddresses(t, e, id, "Cluj", "Dej")

	done := make(chan error, 1)
	go func() {
		_, err := e.Calculate(ctx, id)
		done <- err
	}()

	<-resolver.started

	d, err := e.Departure(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsCalculating {
		t.Fatalf("expected calculating flag while in flight")
	}
	if got := e.CalculationState(id); got != StateCalculating {
		t.Fatalf("expected state %q, got %q", StateCalculating, got)
	}

	if _, err := e.Calculate(ctx, id); !errors.Is(err, ErrCalculationInProgress) {
		t.Fatalf("expected ErrCalculationInProgress, got %v", err)
	}

	close(resolver.release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := resolver.calls.Load(); n != 1 {
		t.Fatalf("expected one resolver call, got %d", n)
	}

	// Settled again, so a new request is accepted.
	if _, err := e.Calculate(ctx, id); err != nil {
		t.Fatalf("unexpected error on recalculation: %v", err)
	}
}

func TestCalculateFailureClearsResult(t *testing.T) {
	resolver := routing.NewMockRouteResolver([]routing.MockRoute{
		{Locations: []string{"Cluj", "Dej"}, Meters: 60000},
	})
	e, _ := newTestEstimator(t, resolver)
	ctx := context.Background()
	id := firstID(t, e)
	fillAddresses(t, e, id, "Cluj", "Dej")

	if _, err := e.Calculate(ctx, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fillAddresses(t, e, id, "Cluj", "Nowhere")
	d, err := e.Calculate(ctx, id)
	if !errors.Is(err, ErrResolutionFailed) || !errors.Is(err, ports.ErrNoRoute) {
		t.Fatalf("expected resolution failure wrapping ErrNoRoute, got %v", err)
	}
	if d == nil {
		t.Fatalf("expected the departure with the error")
	}
	if d.Result != nil || d.IsCalculating {
		t.Fatalf("expected cleared result and flag, got %+v", d)
	}
	if got := e.CalculationState(id); got != StateFailed {
		t.Fatalf("expected state %q, got %q", StateFailed, got)
	}

	// No automatic retry.
	if n := len(resolver.Calls()); n != 2 {
		t.Fatalf("expected two resolver calls, got %d", n)
	}
}

func TestCalculateTimeout(t *testing.T) {
	resolver := newGateResolver(1000)
	store := storage.NewStateStore(storage.NewMemoryBlobStore(), zap.NewNop())
	e := NewEstimator(context.Background(), resolver, store, EstimatorOptions{Timeout: 20 * time.Millisecond})
	id := firstID(t, e)
	fillAddresses(t, e, id, "Cluj", "Dej")

	d, err := e.Calculate(context.Background(), id)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if d.IsCalculating || d.Result != nil {
		t.Fatalf("expected settled departure without result, got %+v", d)
	}
}

func TestCompletionForRemovedDepartureIsDiscarded(t *testing.T) {
	resolver := newGateResolver(1000)
	e, _ := newTestEstimator(t, resolver)
	ctx := context.Background()

	other := e.CreateDeparture(ctx)
	id := firstID(t, e)
	fillAddresses(t, e, id, "Cluj", "Dej")

	done := make(chan error, 1)
	go func() {
		_, err := e.Calculate(ctx, id)
		done <- err
	}()
	<-resolver.started

	if err := e.RemoveDeparture(ctx, id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	close(resolver.release)

	if err := <-done; !errors.Is(err, domain.ErrDepartureNotFound) {
		t.Fatalf("expected ErrDepartureNotFound, got %v", err)
	}

	items := e.Departures().Items()
	if len(items) != 1 || items[0].ID != other.ID {
		t.Fatalf("unexpected departures %+v", items)
	}
	if items[0].Name != "Departure 1" || items[0].Result != nil {
		t.Fatalf("unexpected remaining departure %+v", items[0])
	}
}

func TestRemoveLastDeparture(t *testing.T) {
	e, _ := newTestEstimator(t, routing.NewMockRouteResolver(nil))
	ctx := context.Background()

	if err := e.RemoveDeparture(ctx, firstID(t, e)); !errors.Is(err, ErrLastDeparture) {
		t.Fatalf("expected ErrLastDeparture, got %v", err)
	}
	if err := e.RemoveDeparture(ctx, "missing"); !errors.Is(err, domain.ErrDepartureNotFound) {
		t.Fatalf("expected ErrDepartureNotFound, got %v", err)
	}
}

func TestCalculateAll(t *testing.T) {
	resolver := routing.NewMockRouteResolver([]routing.MockRoute{
		{Locations: []string{"A", "B"}, Meters: 10000},
		{Locations: []string{"A", "C"}, Meters: 20000},
	})
	e, _ := newTestEstimator(t, resolver)
	ctx := context.Background()

	ids := []string{firstID(t, e), e.CreateDeparture(ctx).ID, e.CreateDeparture(ctx).ID, e.CreateDeparture(ctx).ID}
	fillAddresses(t, e, ids[0], "A", "B")
	fillAddresses(t, e, ids[1], "A", "C")
	fillAddresses(t, e, ids[2], "A", "Z")
	// ids[3] has no addresses and is skipped.

	outcomes, err := e.CalculateAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}

	byID := map[string]CalculationOutcome{}
	for _, o := range outcomes {
		byID[o.DepartureID] = o
	}
	if byID[ids[0]].Err != nil || byID[ids[1]].Err != nil {
		t.Fatalf("unexpected failures: %v, %v", byID[ids[0]].Err, byID[ids[1]].Err)
	}
	if !errors.Is(byID[ids[2]].Err, ErrResolutionFailed) {
		t.Fatalf("expected failure for unknown route, got %v", byID[ids[2]].Err)
	}

	total := e.Totals()
	if total.DistanceKm != 30 {
		t.Fatalf("expected 30 km total, got %v", total.DistanceKm)
	}

	resolver.SetAPIKey("")
	if _, err := e.CalculateAll(ctx); !errors.Is(err, ErrResolverUnavailable) {
		t.Fatalf("expected ErrResolverUnavailable, got %v", err)
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	resolver := routing.NewMockRouteResolver([]routing.MockRoute{
		{Locations: []string{"Cluj", "Dej"}, Meters: 60000},
	})
	e, store := newTestEstimator(t, resolver)
	ctx := context.Background()
	id := firstID(t, e)
	fillAddresses(t, e, id, "Cluj", "Dej")

	stop, err := e.AddStop(ctx, id)
	if err != nil {
		t.Fatalf("add stop: %v", err)
	}
	if _, err := e.UpdateStopKits(ctx, id, stop.ID, -4); err != nil {
		t.Fatalf("update kits: %v", err)
	}
	if _, err := e.Calculate(ctx, id); err != nil {
		t.Fatalf("calculate: %v", err)
	}

	restored := NewEstimator(ctx, resolver, store, EstimatorOptions{})
	d, err := restored.Departure(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Result == nil || d.Result.DistanceKm != 60 {
		t.Fatalf("expected restored estimate, got %+v", d.Result)
	}
	if d.IntermediateStops[0].Kits != 0 {
		t.Fatalf("expected clamped kits, got %d", d.IntermediateStops[0].Kits)
	}
	if got := restored.CalculationState(id); got != StateResolved {
		t.Fatalf("expected state %q, got %q", StateResolved, got)
	}
}

func TestUseHomeAddress(t *testing.T) {
	e, _ := newTestEstimator(t, routing.NewMockRouteResolver(nil))
	ctx := context.Background()
	id := firstID(t, e)

	if _, err := e.UseHomeAddress(ctx, id, domain.RoleStart); !errors.Is(err, ErrNoHomeAddress) {
		t.Fatalf("expected ErrNoHomeAddress, got %v", err)
	}

	home := "Str. Memorandumului 28, Cluj-Napoca"
	if _, err := e.UpdateSettings(ctx, domain.SettingsPatch{HomeAddress: &home}); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	d, err := e.UseHomeAddress(ctx, id, domain.RoleReturn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ReturnAddress.Value != home || d.StartAddress.Value != "" {
		t.Fatalf("unexpected addresses %+v / %+v", d.StartAddress, d.ReturnAddress)
	}

	if _, err := e.UseHomeAddress(ctx, id, domain.RoleIntermediate); !errors.Is(err, domain.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestSelectPlaceAndStopErrors(t *testing.T) {
	e, _ := newTestEstimator(t, routing.NewMockRouteResolver(nil))
	ctx := context.Background()
	id := firstID(t, e)

	d, err := e.SelectPlace(ctx, id, domain.RoleStart, "", ports.PlaceSuggestion{PlaceID: "osm:1", Label: "Turda, Romania"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.StartAddress.Value != "Turda, Romania" || d.StartAddress.PlaceID != "osm:1" {
		t.Fatalf("unexpected start address %+v", d.StartAddress)
	}

	if _, err := e.RemoveStop(ctx, id, "missing"); !errors.Is(err, domain.ErrStopNotFound) {
		t.Fatalf("expected ErrStopNotFound, got %v", err)
	}
	if _, err := e.UpdateAddress(ctx, "missing", domain.RoleStart, "", "x"); !errors.Is(err, domain.ErrDepartureNotFound) {
		t.Fatalf("expected ErrDepartureNotFound, got %v", err)
	}
}
