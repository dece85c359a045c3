package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/models"
	"github.com/myrjola/foundit/internal/repositories"
)

const (
	maxHistoryLimit = 500
	// keepAliveInterval is how often an idle chat event stream sends a comment so proxies keep it open.
	keepAliveInterval = 25 * time.Second
)

type chatMessageRequest struct {
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
}

func (app *application) sendChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := app.readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if strings.TrimSpace(req.SenderID) == "" || strings.TrimSpace(req.Message) == "" {
		app.clientError(w, r, http.StatusBadRequest, errors.New("sender_id and message are required"))
		return
	}
	itemID := r.PathValue("itemID")
	msg, err := app.chats.AddMessage(r.Context(), itemID, req.SenderID, req.Message)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.chatEvents.Publish(itemID, *msg)
	app.writeJSON(w, r, http.StatusOK, struct {
		Status  string          `json:"status"`
		Message *models.Message `json:"message"`
	}{Status: "message sent", Message: msg})
}

func (app *application) chatHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", repositories.DefaultHistoryLimit)
	if err != nil || limit < 1 || limit > maxHistoryLimit {
		app.clientError(w, r, http.StatusBadRequest, errors.New("limit must be between 1 and 500"))
		return
	}
	itemID := r.PathValue("itemID")
	if _, err = app.chats.Get(r.Context(), itemID); err != nil {
		app.handleError(w, r, err)
		return
	}
	messages, err := app.chats.History(r.Context(), itemID, limit)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	app.writeJSON(w, r, http.StatusOK, messages)
}

// chatStream streams messages posted to the chat from now on as server-sent events. Clients reconnecting after a
// gap fetch the history first.
func (app *application) chatStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID := r.PathValue("itemID")
	if _, err := app.chats.Get(ctx, itemID); err != nil {
		app.handleError(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	// The stream outlives the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		app.serverError(w, r, errors.Wrap(err, "clear write deadline"))
		return
	}
	messages, unsubscribe := app.chatEvents.Subscribe(itemID)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "flush event stream", errors.SlogError(err))
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			_, err = fmt.Fprint(w, ": keep-alive\n\n")
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var data []byte
			if data, err = json.Marshal(msg); err != nil {
				app.logger.LogAttrs(ctx, slog.LevelError, "encode chat event", errors.SlogError(errors.Wrap(err, "marshal")))
				return
			}
			_, err = fmt.Fprintf(w, "event: message\nid: %d\ndata: %s\n\n", msg.ID, data)
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			app.logger.LogAttrs(ctx, slog.LevelDebug, "chat event stream closed", errors.SlogError(err))
			return
		}
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrap(err, "parse query parameter")
	}
	return v, nil
}
