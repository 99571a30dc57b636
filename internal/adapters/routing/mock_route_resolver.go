package routing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"trip-estimator/internal/ports"
)

// MockRoute is one canned answer, matched on the exact location list.
type MockRoute struct {
	Locations []string
	Meters    int
	Seconds   int
}

// MockRouteResolver answers from a fixed table. Unknown routes fail with
// ports.ErrNoRoute. It also records every request it receives.
type MockRouteResolver struct {
	mu    sync.Mutex
	m     map[string]ports.RouteResult
	ready bool
	calls [][]string
}

func NewMockRouteResolver(routes []MockRoute) *MockRouteResolver {
	m := make(map[string]ports.RouteResult, len(routes))
	for _, r := range routes {
		m[mockKey(r.Locations)] = ports.RouteResult{DistanceMeters: r.Meters, DurationSeconds: r.Seconds}
	}
	return &MockRouteResolver{m: m, ready: true}
}

func mockKey(locations []string) string {
	return strings.Join(locations, "|")
}

// SetAPIKey toggles readiness the same way the real resolver does.
func (p *MockRouteResolver) SetAPIKey(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = strings.TrimSpace(key) != ""
}

func (p *MockRouteResolver) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *MockRouteResolver) ResolveRoute(ctx context.Context, locations []string) (ports.RouteResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, append([]string(nil), locations...))
	r, ok := p.m[mockKey(locations)]
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return ports.RouteResult{}, err
	}
	if !ok {
		return ports.RouteResult{}, fmt.Errorf("missing route %q: %w", locations, ports.ErrNoRoute)
	}

	return r, nil
}

// Calls returns the location lists requested so far, oldest first.
func (p *MockRouteResolver) Calls() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]string, len(p.calls))
	copy(out, p.calls)
	return out
}
