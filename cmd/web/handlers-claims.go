package main

import (
	"net/http"

	"github.com/myrjola/foundit/internal/claims"
)

type evaluateMatchRequest struct {
	ItemID      string            `json:"item_id"`
	UserAnswers map[string]string `json:"user_answers"`
	UserID      string            `json:"user_id"`
}

func (app *application) evaluateMatch(w http.ResponseWriter, r *http.Request) {
	var req evaluateMatchRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	outcome, err := app.claims.Evaluate(r.Context(), claims.Request{
		ItemID:     req.ItemID,
		Answers:    req.UserAnswers,
		ClaimantID: req.UserID,
	})
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if outcome.ImageURL != nil {
		public := publicImagePath(*outcome.ImageURL)
		outcome.ImageURL = &public
	}
	app.writeJSON(w, r, http.StatusOK, outcome)
}
