package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/myrjola/foundit/internal/e2etest"
	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/logging"
)

// TestAPI checks that the deployment is healthy and that the embedding model answers similarity queries.
func TestAPI(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second) //nolint:mnd // model warm-up can be slow
	defer cancel()
	var (
		status int
		err    error
	)

	if status, err = client.GetJSON(ctx, "/api/healthy", nil); err != nil {
		return errors.Wrap(err, "health check")
	}
	if status != http.StatusOK {
		return errors.New("unhealthy", slog.Int("status", status))
	}

	var similarity struct {
		Similarity float64 `json:"similarity"`
	}
	in := map[string]string{
		"text_a": "Lost black iPhone with red case",
		"text_b": "iPhone, red cover, black color",
	}
	if status, err = client.PostJSON(ctx, "/api/similarity", in, &similarity); err != nil {
		return errors.Wrap(err, "similarity")
	}
	if status != http.StatusOK {
		return errors.New("similarity failed", slog.Int("status", status))
	}
	if similarity.Similarity <= 0 {
		return errors.New("related descriptions should be similar", slog.Float64("similarity", similarity.Similarity))
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	url := "https://" + os.Args[1]
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if err := TestAPI(e2etest.NewClient(url)); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing api", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
