package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/myrjola/foundit/internal/ai"
	"github.com/myrjola/foundit/internal/anomaly"
	"github.com/myrjola/foundit/internal/claims"
	"github.com/myrjola/foundit/internal/contexthelpers"
	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/repositories"
	"github.com/myrjola/foundit/internal/storage"
)

const maxJSONBytes = 1 << 20

var errBadRequest = errors.NewSentinel("bad request")

type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(r *http.Request, status int, detail string) errorResponse {
	return errorResponse{
		Error:     http.StatusText(status),
		Detail:    detail,
		RequestID: contexthelpers.RequestID(r.Context()),
	}
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	app.writeJSON(w, r, http.StatusInternalServerError, newErrorResponse(r, http.StatusInternalServerError, ""))
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
		detail string
	)
	if err != nil {
		detail = err.Error()
	}

	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status),
		slog.String("method", method), slog.String("uri", uri), slog.String("detail", detail))
	app.writeJSON(w, r, status, newErrorResponse(r, status, detail))
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.clientError(w, r, http.StatusNotFound, nil)
}

// handleError maps domain errors to HTTP responses. Unknown errors are server errors.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		app.clientError(w, r, http.StatusNotFound, err)
	case errors.Is(err, errBadRequest),
		errors.Is(err, claims.ErrInvalidRequest),
		errors.Is(err, claims.ErrAnswerKeyMissing),
		errors.Is(err, anomaly.ErrInvalidContamination),
		errors.Is(err, storage.ErrInvalidImage):
		app.clientError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, claims.ErrTooManyAttempts):
		app.clientError(w, r, http.StatusTooManyRequests, err)
	case errors.Is(err, ai.ErrMalformedQuestions):
		app.logger.LogAttrs(r.Context(), slog.LevelError, "bad gateway", errors.SlogError(err))
		app.writeJSON(w, r, http.StatusBadGateway,
			newErrorResponse(r, http.StatusBadGateway, "vision model returned malformed questions"))
	case errors.Is(err, anomaly.ErrUpstream):
		app.logger.LogAttrs(r.Context(), slog.LevelError, "bad gateway", errors.SlogError(err))
		app.writeJSON(w, r, http.StatusBadGateway,
			newErrorResponse(r, http.StatusBadGateway, "embedding provider failed"))
	default:
		app.serverError(w, r, err)
	}
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "encode response",
			errors.SlogError(errors.Wrap(err, "encode json")))
	}
}

// readJSON decodes a size limited JSON request body into v.
func (app *application) readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, errors.Wrap(err, "decode json"))
	}
	return nil
}
