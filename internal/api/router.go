package api

import (
	"net/http"
	"time"
	"trip-estimator/internal/api/handlers"
	"trip-estimator/internal/platform/metrics"
	"trip-estimator/internal/ports"
	"trip-estimator/internal/services"

	"go.uber.org/zap"
)

// Dependencies of the HTTP API. Places and Metrics are optional.
type RouterDeps struct {
	Estimator *services.Estimator
	Places    ports.PlaceSuggester
	Metrics   *metrics.Collector
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	settings := &handlers.SettingsHandler{Estimator: deps.Estimator}
	departures := &handlers.DepartureHandler{Estimator: deps.Estimator}
	calculations := &handlers.CalculationHandler{Estimator: deps.Estimator}
	places := &handlers.PlaceHandler{Suggester: deps.Places}
	reports := &handlers.ReportHandler{Estimator: deps.Estimator, Now: deps.Now}

	mux.HandleFunc("GET /health", handlers.Health)

	mux.HandleFunc("GET /settings", settings.Get)
	mux.HandleFunc("PUT /settings", settings.Update)
	mux.HandleFunc("GET /fuel-types", handlers.FuelTypes)

	mux.HandleFunc("GET /departures", departures.List)
	mux.HandleFunc("POST /departures", departures.Create)
	mux.HandleFunc("PATCH /departures/{id}", departures.Patch)
	mux.HandleFunc("DELETE /departures/{id}", departures.Delete)
	mux.HandleFunc("POST /departures/{id}/stops", departures.AddStop)
	mux.HandleFunc("DELETE /departures/{id}/stops/{stopId}", departures.RemoveStop)
	mux.HandleFunc("PUT /departures/{id}/stops/{stopId}/kits", departures.UpdateKits)
	mux.HandleFunc("PUT /departures/{id}/addresses/{role}", departures.UpdateAddress)
	mux.HandleFunc("POST /departures/{id}/addresses/{role}/home", departures.UseHome)
	mux.HandleFunc("GET /totals", departures.Totals)

	mux.HandleFunc("POST /departures/{id}/calculate", calculations.Calculate)
	mux.HandleFunc("POST /departures/calculate", calculations.CalculateAll)

	mux.HandleFunc("GET /places", places.Suggest)
	mux.HandleFunc("GET /report", reports.Report)

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	return loggingMiddleware(log, mux)
}
