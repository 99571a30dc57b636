// Package report renders the printable trip-cost report.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"trip-estimator/internal/domain"
)

// ErrNothingToReport is returned when no departure has a resolved estimate.
var ErrNothingToReport = errors.New("no calculated departures to report")

var monthsRO = [...]string{
	"ianuarie", "februarie", "martie", "aprilie", "mai", "iunie",
	"iulie", "august", "septembrie", "octombrie", "noiembrie", "decembrie",
}

// Data is everything a report needs. Only calculated departures are kept.
type Data struct {
	Departures  []*domain.Departure
	Settings    domain.Settings
	Totals      domain.GrandTotal
	GeneratedAt time.Time
}

// HasCalculated reports whether at least one departure carries an estimate.
func HasCalculated(departures []*domain.Departure) bool {
	for _, d := range departures {
		if d.Calculated() {
			return true
		}
	}
	return false
}

// New selects the calculated departures and totals the whole collection.
func New(departures []*domain.Departure, settings domain.Settings, generatedAt time.Time) (Data, error) {
	if !HasCalculated(departures) {
		return Data{}, ErrNothingToReport
	}

	calculated := make([]*domain.Departure, 0, len(departures))
	for _, d := range departures {
		if d.Calculated() {
			calculated = append(calculated, d)
		}
	}

	return Data{
		Departures:  calculated,
		Settings:    settings,
		Totals:      domain.Totals(departures),
		GeneratedAt: generatedAt,
	}, nil
}

func formatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d, %02d:%02d", t.Day(), monthsRO[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// stopsLine joins the filled-in stops in visiting order.
func stopsLine(d *domain.Departure) string {
	parts := make([]string, 0, len(d.IntermediateStops))
	for _, s := range d.IntermediateStops {
		if !s.Blank() {
			parts = append(parts, s.Value)
		}
	}
	return orDash(strings.Join(parts, " → "))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
