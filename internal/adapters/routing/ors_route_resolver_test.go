package routing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"trip-estimator/internal/adapters/cache"
	"trip-estimator/internal/adapters/storage"
	"trip-estimator/internal/platform/db"
	"trip-estimator/internal/platform/metrics"
	"trip-estimator/internal/ports"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeORS struct {
	geocodeCalls    atomic.Int32
	directionsCalls atomic.Int32
	directionsFail  atomic.Int32 // number of 503 answers before succeeding
	directionsCode  int
	geocodeCode     int

	mu         sync.Mutex
	lastCoords [][]float64
}

func (f *fakeORS) coords() [][]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCoords
}

var fakePlaces = map[string][]float64{
	"Cluj-Napoca": {23.59, 46.77},
	"Turda":       {23.78, 46.57},
	"Dej":         {23.87, 47.14},
}

func (f *fakeORS) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /geocode/search", func(w http.ResponseWriter, r *http.Request) {
		f.geocodeCalls.Add(1)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		if f.geocodeCode != 0 {
			http.Error(w, `{"error":"invalid text"}`, f.geocodeCode)
			return
		}
		assert.Equal(t, "RO", r.URL.Query().Get("boundary.country"))

		features := []map[string]any{}
		if c, ok := fakePlaces[r.URL.Query().Get("text")]; ok {
			features = append(features, map[string]any{
				"geometry":   map[string]any{"coordinates": c},
				"properties": map[string]any{"gid": "gid:" + r.URL.Query().Get("text"), "label": r.URL.Query().Get("text")},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"features": features})
	})

	mux.HandleFunc("GET /geocode/autocomplete", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"features": []map[string]any{
			{"properties": map[string]any{"gid": "openstreetmap:node:1", "label": "Turda, Cluj, Romania"}},
			{"properties": map[string]any{"gid": "openstreetmap:node:2", "label": ""}},
		}})
	})

	mux.HandleFunc("POST /v2/directions/driving-car", func(w http.ResponseWriter, r *http.Request) {
		f.directionsCalls.Add(1)
		if f.directionsFail.Load() > 0 {
			f.directionsFail.Add(-1)
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		if f.directionsCode != 0 {
			http.Error(w, `{"error":"route not found"}`, f.directionsCode)
			return
		}

		var req directionsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.lastCoords = req.Coordinates
		f.mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"routes": []map[string]any{
				{"summary": map[string]any{"distance": 61234.6, "duration": 3100.2}},
			},
		})
	})

	return mux
}

func newTestResolver(t *testing.T, f *fakeORS, withCache bool) (*ORSRouteResolver, *metrics.Collector) {
	t.Helper()

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	m := metrics.NewCollector()
	opts := Options{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/",
		Country: "RO",
		Metrics: m,
		Logger:  zap.NewNop(),
		Backoff: time.Millisecond,
	}

	if withCache {
		conn, err := db.OpenSqlite(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		require.NoError(t, storage.InitSchema(conn, db.SQLite))

		opts.RouteCache = cache.NewSQLRouteCache(conn, db.SQLite, zap.NewNop())
		opts.GeocodeCache = cache.NewSQLGeocodeCache(conn, db.SQLite, zap.NewNop())
	}

	return NewORSRouteResolver(opts), m
}

func TestResolveRouteKeepsOrder(t *testing.T) {
	f := &fakeORS{}
	o, _ := newTestResolver(t, f, false)

	r, err := o.ResolveRoute(context.Background(), []string{"Cluj-Napoca", "Dej", "Turda", "Cluj-Napoca"})
	require.NoError(t, err)

	assert.Equal(t, 61235, r.DistanceMeters)
	assert.Equal(t, 3100, r.DurationSeconds)
	assert.InDelta(t, 61.235, r.DistanceKm(), 1e-9)

	// Duplicate locations are geocoded once.
	assert.EqualValues(t, 3, f.geocodeCalls.Load())
	assert.Equal(t, [][]float64{
		fakePlaces["Cluj-Napoca"],
		fakePlaces["Dej"],
		fakePlaces["Turda"],
		fakePlaces["Cluj-Napoca"],
	}, f.coords())
}

func TestResolveRouteUsesCaches(t *testing.T) {
	f := &fakeORS{}
	o, m := newTestResolver(t, f, true)
	ctx := context.Background()

	first, err := o.ResolveRoute(ctx, []string{"Cluj-Napoca", "Turda", "Cluj-Napoca"})
	require.NoError(t, err)

	second, err := o.ResolveRoute(ctx, []string{"Cluj-Napoca ", "  Turda", "Cluj-Napoca"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, f.directionsCalls.Load())

	// A different order is a different route, but the points are known.
	_, err = o.ResolveRoute(ctx, []string{"Turda", "Cluj-Napoca"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.directionsCalls.Load())
	assert.EqualValues(t, 2, f.geocodeCalls.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RouteCache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RouteCache.WithLabelValues("miss")))
}

func TestResolveRouteRetriesTransientFailures(t *testing.T) {
	f := &fakeORS{}
	f.directionsFail.Store(2)
	o, _ := newTestResolver(t, f, false)

	_, err := o.ResolveRoute(context.Background(), []string{"Cluj-Napoca", "Turda"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, f.directionsCalls.Load())
}

func TestResolveRouteNoRoute(t *testing.T) {
	t.Run("unknown address", func(t *testing.T) {
		o, _ := newTestResolver(t, &fakeORS{}, false)
		_, err := o.ResolveRoute(context.Background(), []string{"Cluj-Napoca", "Atlantis"})
		assert.ErrorIs(t, err, ports.ErrNoRoute)
	})

	t.Run("provider rejects route", func(t *testing.T) {
		f := &fakeORS{directionsCode: http.StatusNotFound}
		o, _ := newTestResolver(t, f, false)
		_, err := o.ResolveRoute(context.Background(), []string{"Cluj-Napoca", "Turda"})
		assert.ErrorIs(t, err, ports.ErrNoRoute)
		assert.EqualValues(t, 1, f.directionsCalls.Load())
	})

	t.Run("geocoder rejects address", func(t *testing.T) {
		for _, code := range []int{http.StatusBadRequest, http.StatusNotFound} {
			f := &fakeORS{geocodeCode: code}
			o, _ := newTestResolver(t, f, false)
			_, err := o.ResolveRoute(context.Background(), []string{"Cluj-Napoca", "Turda"})
			assert.ErrorIs(t, err, ports.ErrNoRoute, "status %d", code)
			assert.EqualValues(t, 1, f.geocodeCalls.Load())
			assert.Zero(t, f.directionsCalls.Load())
		}
	})

	t.Run("blank location", func(t *testing.T) {
		o, _ := newTestResolver(t, &fakeORS{}, false)
		_, err := o.ResolveRoute(context.Background(), []string{"Cluj-Napoca", "  "})
		assert.ErrorIs(t, err, ports.ErrNoRoute)
	})
}

func TestResolveRouteStopsAfterMaxAttempts(t *testing.T) {
	f := &fakeORS{}
	f.directionsFail.Store(10)

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	o := NewORSRouteResolver(Options{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		Country:     "RO",
		MaxAttempts: 2,
		Backoff:     time.Millisecond,
	})

	_, err := o.ResolveRoute(context.Background(), []string{"Cluj-Napoca", "Turda"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrNoRoute)
	assert.EqualValues(t, 2, f.directionsCalls.Load())

	var pe *providerError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusServiceUnavailable, pe.Status)
}

func TestResolveRouteRequiresKey(t *testing.T) {
	f := &fakeORS{}
	o, _ := newTestResolver(t, f, false)

	o.SetAPIKey("  ")
	assert.False(t, o.Ready())

	_, err := o.ResolveRoute(context.Background(), []string{"Cluj-Napoca", "Turda"})
	assert.Error(t, err)
	assert.Zero(t, f.geocodeCalls.Load())

	o.SetAPIKey("test-key")
	assert.True(t, o.Ready())
}

func TestSuggest(t *testing.T) {
	o, _ := newTestResolver(t, &fakeORS{}, false)
	ctx := context.Background()

	got, err := o.Suggest(ctx, "Tu")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = o.Suggest(ctx, "Turd")
	require.NoError(t, err)
	assert.Equal(t, []ports.PlaceSuggestion{
		{PlaceID: "openstreetmap:node:1", Label: "Turda, Cluj, Romania"},
	}, got)
}

func TestMockRouteResolver(t *testing.T) {
	m := NewMockRouteResolver([]MockRoute{
		{Locations: []string{"A", "B", "A"}, Meters: 2000, Seconds: 120},
	})
	ctx := context.Background()

	r, err := m.ResolveRoute(ctx, []string{"A", "B", "A"})
	require.NoError(t, err)
	assert.Equal(t, 2000, r.DistanceMeters)

	_, err = m.ResolveRoute(ctx, []string{"A", "C", "A"})
	assert.ErrorIs(t, err, ports.ErrNoRoute)
	assert.Len(t, m.Calls(), 2)

	m.SetAPIKey("")
	assert.False(t, m.Ready())
}
