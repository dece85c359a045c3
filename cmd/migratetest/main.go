package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/sqlite"
	"github.com/myrjola/foundit/internal/testhelpers"
)

// main opens a copy of the production database, which applies the schema migration, and checks that the data
// survived.
func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("FOUNDIT_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "FOUNDIT_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	counts := make(map[string]int)
	for _, table := range []string{"items", "claim_attempts", "reports"} {
		var count int
		if err = db.ReadOnly.GetContext(ctx, &count, `SELECT COUNT(*) FROM `+table); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "error counting rows",
				slog.String("table", table), errors.SlogError(err))
			os.Exit(1)
		}
		counts[table] = count
		logger.LogAttrs(ctx, slog.LevelInfo, "row count", slog.String("table", table), slog.Int("count", count))
	}
	if counts["items"] == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "no items found, something is likely wrong")
		os.Exit(1)
	}
	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
