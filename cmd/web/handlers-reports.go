package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/myrjola/foundit/internal/anomaly"
	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/models"
	"github.com/myrjola/foundit/internal/reportindex"
)

const defaultContamination = 0.2

type reportRequest struct {
	Kind        models.ReportKind `json:"kind"`
	ReporterID  string            `json:"reporter_id"`
	Description string            `json:"description"`
}

type reportResponse struct {
	Report  *models.Report      `json:"report"`
	Matches []reportindex.Match `json:"matches"`
}

// createReport stores a lost or found report and suggests matching reports of the opposite kind.
func (app *application) createReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	req.Description = strings.TrimSpace(req.Description)
	if !req.Kind.Valid() || strings.TrimSpace(req.ReporterID) == "" || req.Description == "" {
		app.clientError(w, r, http.StatusBadRequest,
			errors.New("kind must be lost or found and reporter_id and description are required"))
		return
	}
	report := &models.Report{
		ID:          uuid.NewString(),
		Kind:        req.Kind,
		ReporterID:  req.ReporterID,
		Description: req.Description,
	}
	ctx := r.Context()
	if err := app.reports.Create(ctx, report); err != nil {
		app.serverError(w, r, err)
		return
	}
	if err := app.reportIndex.Add(ctx, *report); err != nil {
		app.serverError(w, r, errors.Wrap(err, "index report"))
		return
	}
	matches, err := app.reportIndex.Match(ctx, *report, reportindex.DefaultLimit)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, reportResponse{Report: report, Matches: matches})
}

func (app *application) reportMatches(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", reportindex.DefaultLimit)
	if err != nil || limit <= 0 {
		app.clientError(w, r, http.StatusBadRequest, errors.New("limit must be a positive integer"))
		return
	}
	report, err := app.reports.Get(r.Context(), r.PathValue("reportID"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	matches, err := app.reportIndex.Match(r.Context(), *report, limit)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, reportResponse{Report: report, Matches: matches})
}

type reportAnomaly struct {
	ReportID string            `json:"report_id"`
	Kind     models.ReportKind `json:"kind"`
	anomaly.Result
}

// reportAnomalies screens every stored report description for entries unlike the rest.
func (app *application) reportAnomalies(w http.ResponseWriter, r *http.Request) {
	contamination := defaultContamination
	if raw := r.URL.Query().Get("contamination"); raw != "" {
		var err error
		if contamination, err = strconv.ParseFloat(raw, 64); err != nil {
			app.clientError(w, r, http.StatusBadRequest, errors.Wrap(err, "parse contamination"))
			return
		}
	}
	reports, err := app.reports.List(r.Context(), "")
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	entries := make([]string, len(reports))
	for i, report := range reports {
		entries[i] = report.Description
	}
	results, err := app.detector.Detect(r.Context(), entries, contamination)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	out := make([]reportAnomaly, len(results))
	for i, res := range results {
		out[i] = reportAnomaly{ReportID: reports[i].ID, Kind: reports[i].Kind, Result: res}
	}
	app.writeJSON(w, r, http.StatusOK, out)
}
