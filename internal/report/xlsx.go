package report

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"
)

const (
	departuresSheet = "Departures"
	settingsSheet   = "Settings"
)

var departureColumns = []any{
	"Plecare", "Adresă Plecare", "Opriri Intermediare", "Adresă Întoarcere",
	"Kituri", "Distanță (km)", "Combustibil (L)", "Cost (RON)",
}

type colWidth struct {
	sheet, from, to string
	width           float64
}

var columnWidths = []colWidth{
	{departuresSheet, "A", "A", 16},
	{departuresSheet, "B", "D", 40},
	{departuresSheet, "E", "H", 16},
	{settingsSheet, "A", "A", 28},
	{settingsSheet, "B", "B", 32},
}

// WriteXLSX writes the report as a workbook with a departures sheet (one row
// per calculated departure and a total row) and a settings sheet.
func WriteXLSX(w io.Writer, d Data) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", departuresSheet); err != nil {
		return fmt.Errorf("write xlsx report: rename sheet: %w", err)
	}

	if err := f.SetSheetRow(departuresSheet, "A1", &departureColumns); err != nil {
		return fmt.Errorf("write xlsx report: header: %w", err)
	}

	row := 2
	for _, dep := range d.Departures {
		values := []any{
			dep.Name,
			orDash(dep.StartAddress.Value),
			stopsLine(dep),
			orDash(dep.ReturnAddress.Value),
			dep.TotalKits(),
			round(dep.Result.DistanceKm, 1),
			round(dep.Result.FuelLiters, 1),
			round(dep.Result.TotalCost, 0),
		}
		if err := f.SetSheetRow(departuresSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return fmt.Errorf("write xlsx report: row %d: %w", row, err)
		}
		row++
	}

	total := []any{
		"Total General", "", "", "",
		d.Totals.Kits,
		round(d.Totals.DistanceKm, 1),
		round(d.Totals.FuelLiters, 1),
		round(d.Totals.TotalCost, 0),
	}
	if err := f.SetSheetRow(departuresSheet, fmt.Sprintf("A%d", row), &total); err != nil {
		return fmt.Errorf("write xlsx report: total row: %w", err)
	}


	if _, err := f.NewSheet(settingsSheet); err != nil {
		return fmt.Errorf("write xlsx report: add settings sheet: %w", err)
	}
	settingsRows := [][]any{
		{"Generat la", formatDate(d.GeneratedAt)},
		{"Tip Combustibil", d.Settings.FuelType},
		{"Preț Combustibil (RON/L)", d.Settings.FuelPrice},
		{"Consum Mediu (L/100km)", d.Settings.AverageConsumption},
	}
	for i, r := range settingsRows {
		if err := f.SetSheetRow(settingsSheet, fmt.Sprintf("A%d", i+1), &r); err != nil {
			return fmt.Errorf("write xlsx report: settings row %d: %w", i+1, err)
		}
	}

	for _, c := range columnWidths {
		if err := f.SetColWidth(c.sheet, c.from, c.to, c.width); err != nil {
			return fmt.Errorf("write xlsx report: %s column width: %w", c.sheet, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx report: %w", err)
	}
	return nil
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
