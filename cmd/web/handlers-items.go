package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/foundit/internal/ai"
	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/logging"
	"github.com/myrjola/foundit/internal/models"
)

// publicImagePath is where a stored photo is served from.
func publicImagePath(imageURL string) string {
	return "/images/" + path.Base(imageURL)
}

type analyzeResponse struct {
	ItemID    string   `json:"item_id"`
	Questions []string `json:"questions"`
}

// analyzeItem stores the photo of a found item and creates the item with questions generated by the vision model.
func (app *application) analyzeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, app.maxUploadBytes)
	if err := r.ParseMultipartForm(app.maxUploadBytes); err != nil {
		app.clientError(w, r, http.StatusBadRequest, errors.Wrap(err, "parse multipart form"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, errors.Wrap(err, "missing image"))
		return
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(file)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "read image"))
		return
	}
	if len(data) == 0 {
		app.clientError(w, r, http.StatusBadRequest, errors.New("empty image"))
		return
	}

	questions, err := app.questions.GenerateQuestions(ctx, data)
	if err != nil {
		if errors.Is(err, ai.ErrMalformedQuestions) {
			app.handleError(w, r, err)
			return
		}
		app.logger.LogAttrs(ctx, slog.LevelError, "vision model failed", errors.SlogError(err))
		app.writeJSON(w, r, http.StatusBadGateway,
			newErrorResponse(r, http.StatusBadGateway, "question generation failed"))
		return
	}

	imageURL, err := app.images.Save(ctx, header.Filename, bytes.NewReader(data))
	if err != nil {
		app.handleError(w, r, errors.Wrap(err, "save image"))
		return
	}
	itemID := uuid.NewString()
	ctx = logging.WithAttrs(ctx, slog.String("item_id", itemID))
	if err = app.items.Create(ctx, itemID, imageURL, questions); err != nil {
		app.serverError(w, r, errors.Wrap(err, "create item"))
		return
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "item created", slog.String("image_url", imageURL))
	app.writeJSON(w, r, http.StatusOK, analyzeResponse{ItemID: itemID, Questions: questions})
}

type answerKeyRequest struct {
	ItemID   string            `json:"item_id"`
	Answers  map[string]string `json:"answers"`
	FinderID string            `json:"finder_id"`
}

func (app *application) submitAnswerKey(w http.ResponseWriter, r *http.Request) {
	var req answerKeyRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err := app.claims.SetAnswerKey(r.Context(), req.ItemID, req.Answers, req.FinderID); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, map[string]string{"message": "answer key saved"})
}

// itemResponse never carries the answer key or the photo, both are only for the finder and verified owner.
type itemResponse struct {
	ItemID    string                `json:"item_id"`
	Questions []string              `json:"questions"`
	FinderID  string                `json:"finder_id,omitempty"`
	IsClaimed bool                  `json:"is_claimed"`
	HasKey    bool                  `json:"has_answer_key"`
	CreatedAt time.Time             `json:"created_at"`
	Claims    []models.ClaimAttempt `json:"claims"`
}

func (app *application) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := app.items.Get(r.Context(), r.PathValue("itemID"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	attempts := item.Claims
	if attempts == nil {
		attempts = []models.ClaimAttempt{}
	}
	app.writeJSON(w, r, http.StatusOK, itemResponse{
		ItemID:    item.ID,
		Questions: item.Questions,
		FinderID:  item.FinderID,
		IsClaimed: item.IsClaimed,
		HasKey:    len(item.AnswerKey) > 0,
		CreatedAt: item.CreatedAt,
		Claims:    attempts,
	})
}

func (app *application) image(w http.ResponseWriter, r *http.Request) {
	data, err := app.images.Load(r.Context(), app.images.URL(r.PathValue("name")))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}
