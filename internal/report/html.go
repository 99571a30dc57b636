package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTmpl = template.Must(template.ParseFS(templateFS, "templates/report.html.tmpl"))

type htmlDeparture struct {
	Name     string
	Start    string
	HasStops bool
	Stops    string
	Return   string
	Distance string
	Fuel     string
	Cost     string
}

type htmlView struct {
	GeneratedAt string
	Year        int

	FuelType    string
	FuelPrice   string
	Consumption string

	Departures []htmlDeparture

	TotalDistance string
	TotalFuel     string
	TotalCost     string
}

func buildView(d Data) htmlView {
	v := htmlView{
		GeneratedAt:   formatDate(d.GeneratedAt),
		Year:          d.GeneratedAt.Year(),
		FuelType:      d.Settings.FuelType,
		FuelPrice:     fmt.Sprintf("%.2f RON/L", d.Settings.FuelPrice),
		Consumption:   strconv.FormatFloat(d.Settings.AverageConsumption, 'f', -1, 64) + " L/100km",
		TotalDistance: fmt.Sprintf("%.1f", d.Totals.DistanceKm),
		TotalFuel:     fmt.Sprintf("%.1f", d.Totals.FuelLiters),
		TotalCost:     fmt.Sprintf("%.0f", d.Totals.TotalCost),
	}

	for _, dep := range d.Departures {
		v.Departures = append(v.Departures, htmlDeparture{
			Name:     dep.Name,
			Start:    orDash(dep.StartAddress.Value),
			HasStops: len(dep.IntermediateStops) > 0,
			Stops:    stopsLine(dep),
			Return:   orDash(dep.ReturnAddress.Value),
			Distance: fmt.Sprintf("%.1f", dep.Result.DistanceKm),
			Fuel:     fmt.Sprintf("%.1f", dep.Result.FuelLiters),
			Cost:     fmt.Sprintf("%.0f", dep.Result.TotalCost),
		})
	}

	return v
}

// WriteHTML renders the printable A4 report.
func WriteHTML(w io.Writer, d Data) error {
	if err := reportTmpl.Execute(w, buildView(d)); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
