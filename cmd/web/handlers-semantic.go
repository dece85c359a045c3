package main

import (
	"net/http"
)

type similarityRequest struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

func (app *application) similarity(w http.ResponseWriter, r *http.Request) {
	var req similarityRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	similarity, err := app.detector.DescribeSimilarity(r.Context(), req.TextA, req.TextB)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, map[string]float64{"similarity": similarity})
}

type anomaliesRequest struct {
	Entries       []string `json:"entries"`
	Contamination *float64 `json:"contamination"`
}

func (app *application) anomalies(w http.ResponseWriter, r *http.Request) {
	var req anomaliesRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	contamination := defaultContamination
	if req.Contamination != nil {
		contamination = *req.Contamination
	}
	results, err := app.detector.Detect(r.Context(), req.Entries, contamination)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, results)
}
