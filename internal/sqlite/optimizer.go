package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/foundit/internal/errors"
)

const optimizeInterval = time.Hour

// StartDatabaseOptimizer runs optimize on start and then once per hour until ctx is done.
//
// The first run analyses all tables (0x10002) as recommended for long-lived connections.
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) StartDatabaseOptimizer(ctx context.Context) {
	db.optimize(ctx, "PRAGMA optimize=0x10002;")
	ticker := time.NewTicker(optimizeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			db.optimize(ctx, "PRAGMA optimize;")
		}
	}
}

func (db *Database) optimize(ctx context.Context, stmt string) {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, stmt); err != nil {
		if ctx.Err() != nil {
			return
		}
		err = errors.Wrap(err, "optimize database")
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", errors.SlogError(err))
		return
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
}
