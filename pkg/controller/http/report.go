package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/service/export"
	"github.com/upawatch/upawatch/pkg/usecase"
)

// ReportHandler serves the admin reports
type ReportHandler struct {
	reports usecase.ReportUseCase
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports usecase.ReportUseCase) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// parseHistoricalQuery reads year, month and day from the query string. Empty values are unset.
func parseHistoricalQuery(r *http.Request) (model.HistoricalQuery, error) {
	query := model.HistoricalQuery{FacilityID: facilityID(r)}
	values := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  **int
	}{
		{"year", &query.Year},
		{"month", &query.Month},
		{"day", &query.Day},
	} {
		raw := values.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return query, goerr.Wrap(err, "filter must be an integer",
				goerr.V(p.name, raw),
				goerr.T(model.ErrTagInvalidQuery))
		}
		*p.dst = &n
	}

	if err := query.Validate(); err != nil {
		return query, err
	}
	return query, nil
}

func (h *ReportHandler) build(w http.ResponseWriter, r *http.Request) (*model.ReportModel, bool) {
	query, err := parseHistoricalQuery(r)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	report, err := h.reports.BuildReport(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return report, true
}

// HandleReport returns the report model as JSON
func (h *ReportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.build(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// HandleExport returns the report model as an XLSX workbook
func (h *ReportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.build(w, r)
	if !ok {
		return
	}

	data, err := export.ReportXLSX(report)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("relatorio-%s-%s.xlsx", facilityID(r), report.GeneratedAt.Format("20060102"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		ctxlog.From(r.Context()).Error("Failed to write export", "error", err)
	}
}
