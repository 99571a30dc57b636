package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"trip-estimator/internal/adapters/cache"
	"trip-estimator/internal/domain"
	"trip-estimator/internal/platform/metrics"
	"trip-estimator/internal/platform/obs"
	"trip-estimator/internal/ports"

	"go.uber.org/zap"
)

// ORSRouteResolver implements RouteResolver and PlaceSuggester using
// OpenRouteService.
//
// It coordinates:
//   - Address normalization
//   - Persistent geocode caching
//   - Persistent route caching keyed by the ordered location list
//   - External API calls with retry/backoff
//
// The API key can be swapped at runtime from user settings. The resolver is
// safe for concurrent use.
type ORSRouteResolver struct {
	session      *http.Client
	backoff      time.Duration
	maxAttempts  int
	baseURL      string
	profile      string
	country      string
	routeCache   *cache.SQLRouteCache
	geocodeCache *cache.SQLGeocodeCache
	metrics      *metrics.Collector
	log          *zap.Logger

	mu     sync.RWMutex
	apiKey string
}

// Options configure an ORSRouteResolver. Zero values select the public
// endpoint, the driving-car profile, no country restriction and four attempts
// per request starting at a 200ms backoff.
type Options struct {
	APIKey       string
	BaseURL      string
	Country      string
	HTTPClient   *http.Client
	MaxAttempts  int
	Backoff      time.Duration
	RouteCache   *cache.SQLRouteCache
	GeocodeCache *cache.SQLGeocodeCache
	Metrics      *metrics.Collector
	Logger       *zap.Logger
}

func NewORSRouteResolver(opts Options) *ORSRouteResolver {
	session := opts.HTTPClient
	if session == nil {
		session = &http.Client{Timeout: 10 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openrouteservice.org"
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	return &ORSRouteResolver{
		session:      session,
		backoff:      backoff,
		maxAttempts:  attempts,
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		profile:      "driving-car",
		country:      strings.TrimSpace(opts.Country),
		routeCache:   opts.RouteCache,
		geocodeCache: opts.GeocodeCache,
		metrics:      opts.Metrics,
		log:          log,
	}
}

// SetAPIKey replaces the credential. An empty key disables the resolver.
func (o *ORSRouteResolver) SetAPIKey(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.apiKey = strings.TrimSpace(key)
}

func (o *ORSRouteResolver) key() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.apiKey
}

// Ready reports whether a credential is configured.
func (o *ORSRouteResolver) Ready() bool {
	return o.key() != ""
}

// normalize ensures consistent cache keys by collapsing whitespace.
func (o *ORSRouteResolver) normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ResolveRoute returns the driving distance through the locations in the
// given order. No optimization is requested from the provider.
func (o *ORSRouteResolver) ResolveRoute(
	ctx context.Context,
	locations []string,
) (_ ports.RouteResult, err error) {
	defer obs.Time(ctx, o.log, "ors.ResolveRoute")(&err)

	if !o.Ready() {
		return ports.RouteResult{}, errors.New("resolve route: ORS api key is empty")
	}

	if len(locations) < 2 {
		return ports.RouteResult{}, fmt.Errorf("resolve route: need origin and destination, got %d locations: %w", len(locations), ports.ErrNoRoute)
	}

	norm := make([]string, 0, len(locations))
	for i, l := range locations {
		n := o.normalize(l)
		if n == "" {
			return ports.RouteResult{}, fmt.Errorf("resolve route: location #%d is empty: %w", i+1, ports.ErrNoRoute)
		}
		norm = append(norm, n)
	}

	// Check persistent route cache before issuing external API calls.
	if o.routeCache != nil {
		r, ok, err := o.routeCache.Get(ctx, norm)
		if err != nil {
			o.log.Warn("route cache read failed", zap.Error(err))
		}
		if ok {
			o.countCache(true, "route")
			return r, nil
		}
		o.countCache(false, "route")
	}

	coords, err := o.coordinates(ctx, norm)
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("resolve route: %w", err)
	}

	points := make([]domain.Coordinates, 0, len(norm))
	for _, l := range norm {
		c, ok := coords[l]
		if !ok {
			return ports.RouteResult{}, fmt.Errorf("resolve route: missing coordinate for %q: %w", l, ports.ErrNoRoute)
		}
		points = append(points, c)
	}

	result, err := o.fetchDirections(ctx, points)
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("resolve route: %w", err)
	}

	if o.routeCache != nil {
		if err := o.routeCache.Put(ctx, norm, result); err != nil {
			o.log.Warn("route cache write failed", zap.Error(err))
		}
	}

	return result, nil
}

// coordinates resolves every distinct location, cache first.
func (o *ORSRouteResolver) coordinates(ctx context.Context, locations []string) (map[string]domain.Coordinates, error) {
	geocodeHits := make(map[string]domain.Coordinates)
	if o.geocodeCache != nil {
		var err error
		geocodeHits, err = o.geocodeCache.GetMany(ctx, locations)
		if err != nil {
			o.log.Warn("geocode cache read failed", zap.Error(err))
			geocodeHits = make(map[string]domain.Coordinates)
		}
	}

	seen := make(map[string]struct{}, len(locations))
	geocodeMisses := make([]string, 0, len(locations))
	for _, a := range locations {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}

		if _, ok := geocodeHits[a]; ok {
			o.countCache(true, "geocode")
			continue
		}
		o.countCache(false, "geocode")
		geocodeMisses = append(geocodeMisses, a)
	}

	fresh := make(map[string]domain.Coordinates)
	if len(geocodeMisses) > 0 {
		var err error
		fresh, err = o.geocodeMany(ctx, geocodeMisses)
		if err != nil {
			return nil, fmt.Errorf("retrieving coordinates: %w", err)
		}
	}

	if o.geocodeCache != nil && len(fresh) > 0 {
		if err := o.geocodeCache.PutMany(ctx, fresh); err != nil {
			o.log.Warn("geocode cache write failed", zap.Error(err))
		}
	}

	coords := make(map[string]domain.Coordinates, len(geocodeHits)+len(fresh))
	for k, v := range geocodeHits {
		coords[k] = v
	}
	for k, v := range fresh {
		coords[k] = v
	}

	return coords, nil
}

func (o *ORSRouteResolver) countCache(hit bool, which string) {
	if o.metrics == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}

	switch which {
	case "route":
		o.metrics.RouteCache.WithLabelValues(result).Inc()
	case "geocode":
		o.metrics.GeocodeCache.WithLabelValues(result).Inc()
	}
}
