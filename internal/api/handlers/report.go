package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"
	"trip-estimator/internal/platform/obs"
	"trip-estimator/internal/report"
	"trip-estimator/internal/services"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	Estimator *services.Estimator
	Now       func() time.Time
}

// Report renders ?format=html (default) or ?format=xlsx. It is only
// available once at least one departure has been calculated.
func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}
	if format != "html" && format != "xlsx" {
		writeError(w, r, http.StatusBadRequest, "format must be html or xlsx")
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	generatedAt := now()

	data, err := report.New(h.Estimator.Departures().Items(), h.Estimator.Settings(), generatedAt)
	if errors.Is(err, report.ErrNothingToReport) {
		writeError(w, r, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}

	var buf bytes.Buffer
	if format == "xlsx" {
		err = report.WriteXLSX(&buf, data)
	} else {
		err = report.WriteHTML(&buf, data)
	}
	if err != nil {
		obs.Logger(r.Context()).Error("render report failed", zap.String("format", format), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	if format == "xlsx" {
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="raport-estimare-%s.xlsx"`, generatedAt.Format("2006-01-02")))
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
