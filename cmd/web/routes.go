package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	api := alice.New(func(h http.Handler) http.Handler { return timeoutHandler(h, defaultTimeout) })

	mux.Handle("GET /api/healthy", api.ThenFunc(app.healthy))

	mux.Handle("POST /api/items/analyze", api.ThenFunc(app.analyzeItem))
	mux.Handle("POST /api/answer-key", api.ThenFunc(app.submitAnswerKey))
	mux.Handle("GET /api/items/{itemID}", api.ThenFunc(app.getItem))
	mux.Handle("GET /images/{name}", api.Append(cacheForeverHeaders).ThenFunc(app.image))

	mux.Handle("POST /api/evaluate-match", api.ThenFunc(app.evaluateMatch))

	mux.Handle("POST /api/chats/{itemID}/messages", api.ThenFunc(app.sendChatMessage))
	mux.Handle("GET /api/chats/{itemID}/messages", api.ThenFunc(app.chatHistory))
	// Streams are long-lived, so they skip the timeout handler.
	mux.Handle("GET /api/chats/{itemID}/events", http.HandlerFunc(app.chatStream))

	mux.Handle("POST /api/reports", api.ThenFunc(app.createReport))
	mux.Handle("GET /api/reports/anomalies", api.ThenFunc(app.reportAnomalies))
	mux.Handle("GET /api/reports/{reportID}/matches", api.ThenFunc(app.reportMatches))

	mux.Handle("POST /api/similarity", api.ThenFunc(app.similarity))
	mux.Handle("POST /api/anomalies", api.ThenFunc(app.anomalies))

	mux.Handle("/", http.HandlerFunc(app.notFound))

	common := alice.New(app.recoverPanic, app.logRequest, secureHeaders)
	return common.Then(mux)
}
