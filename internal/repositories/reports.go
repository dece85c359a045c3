package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/models"
	"github.com/myrjola/foundit/internal/sqlite"
)

type ReportRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewReportRepository(db *sqlite.Database, logger *slog.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger.With("source", "ReportRepository"),
	}
}

// Create stores a report. A zero CreatedAt is set to the current time.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	stmt := `INSERT INTO reports (id, kind, reporter_id, description, created_at)
VALUES (:id, :kind, :reporter_id, :description, :created_at)`
	if _, err := r.db.ReadWrite.NamedExecContext(ctx, stmt, report); err != nil {
		return errors.Wrap(err, "insert report", slog.String("report_id", report.ID))
	}
	return nil
}

func (r *ReportRepository) Get(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	stmt := `SELECT id, kind, reporter_id, description, created_at FROM reports WHERE id = ?`
	if err := r.db.ReadOnly.GetContext(ctx, &report, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "report", slog.String("report_id", id))
		}
		return nil, errors.Wrap(err, "select report", slog.String("report_id", id))
	}
	return &report, nil
}

// List returns all reports oldest first. An empty kind lists both kinds.
func (r *ReportRepository) List(ctx context.Context, kind models.ReportKind) ([]models.Report, error) {
	var reports []models.Report
	stmt := `SELECT id, kind, reporter_id, description, created_at
FROM reports
WHERE ? = '' OR kind = ?
ORDER BY created_at, id`
	if err := r.db.ReadOnly.SelectContext(ctx, &reports, stmt, kind, kind); err != nil {
		return nil, errors.Wrap(err, "select reports")
	}
	return reports, nil
}
