package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they like.
type Collector struct {
	reg *prometheus.Registry

	Calculations        *prometheus.CounterVec // outcome label: resolved|failed|rejected|discarded
	CalculationDuration prometheus.Histogram
	CalculationsActive  prometheus.Gauge

	RouteCache   *prometheus.CounterVec // result label: hit|miss
	GeocodeCache *prometheus.CounterVec // result label: hit|miss

	PersistErrors *prometheus.CounterVec // record label: settings|departures
	Departures    prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estimator_calculations_total",
			Help: "Route calculations by outcome.",
		}, []string{"outcome"}),
		CalculationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "estimator_calculation_duration_seconds",
			Help:    "Time spent waiting on the route resolver per calculation.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		CalculationsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "estimator_calculations_in_flight",
			Help: "Calculations currently waiting on the route resolver.",
		}),
		RouteCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estimator_route_cache_lookups_total",
			Help: "Route cache lookups by result.",
		}, []string{"result"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estimator_geocode_cache_lookups_total",
			Help: "Geocode cache lookups by result.",
		}, []string{"result"}),
		PersistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estimator_persist_errors_total",
			Help: "Failed writes of persisted state by record.",
		}, []string{"record"}),
		Departures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "estimator_departures",
			Help: "Number of departures in the current collection.",
		}),
	}

	reg.MustRegister(
		c.Calculations, c.CalculationDuration, c.CalculationsActive,
		c.RouteCache, c.GeocodeCache,
		c.PersistErrors, c.Departures,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Registry exposes the private registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }
