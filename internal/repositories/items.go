package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/matching"
	"github.com/myrjola/foundit/internal/models"
	"github.com/myrjola/foundit/internal/sqlite"
)

var ErrNotFound = errors.NewSentinel("not found")

type ItemRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewItemRepository(db *sqlite.Database, logger *slog.Logger) *ItemRepository {
	return &ItemRepository{
		db:     db,
		logger: logger.With("source", "ItemRepository"),
	}
}

type itemRow struct {
	ID        string         `db:"id"`
	ImageURL  string         `db:"image_url"`
	Questions string         `db:"questions"`
	AnswerKey string         `db:"answer_key"`
	FinderID  sql.NullString `db:"finder_id"`
	IsClaimed bool           `db:"is_claimed"`
	CreatedAt time.Time      `db:"created_at"`
}

func (row itemRow) toModel() (*models.Item, error) {
	item := models.Item{
		ID:        row.ID,
		ImageURL:  row.ImageURL,
		Questions: nil,
		AnswerKey: matching.AnswerKey{},
		FinderID:  row.FinderID.String,
		IsClaimed: row.IsClaimed,
		CreatedAt: row.CreatedAt,
		Claims:    nil,
	}
	if err := json.Unmarshal([]byte(row.Questions), &item.Questions); err != nil {
		return nil, errors.Wrap(err, "decode questions", slog.String("item_id", row.ID))
	}
	if err := json.Unmarshal([]byte(row.AnswerKey), &item.AnswerKey); err != nil {
		return nil, errors.Wrap(err, "decode answer key", slog.String("item_id", row.ID))
	}
	return &item, nil
}

// Create stores a new unclaimed item without an answer key.
func (r *ItemRepository) Create(ctx context.Context, id string, imageURL string, questions []string) error {
	if questions == nil {
		questions = []string{}
	}
	encoded, err := json.Marshal(questions)
	if err != nil {
		return errors.Wrap(err, "encode questions")
	}
	stmt := `INSERT INTO items (id, image_url, questions, created_at) VALUES (?, ?, ?, ?)`
	if _, err = r.db.ReadWrite.ExecContext(ctx, stmt, id, imageURL, string(encoded), time.Now().UTC()); err != nil {
		return errors.Wrap(err, "insert item", slog.String("item_id", id))
	}
	return nil
}

// Get returns the item with its claim history. It returns ErrNotFound when no item has the id.
func (r *ItemRepository) Get(ctx context.Context, id string) (*models.Item, error) {
	var (
		row itemRow
		err error
	)
	stmt := `SELECT id, image_url, questions, answer_key, finder_id, is_claimed, created_at FROM items WHERE id = ?`
	if err = r.db.ReadOnly.GetContext(ctx, &row, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "item", slog.String("item_id", id))
		}
		return nil, errors.Wrap(err, "select item", slog.String("item_id", id))
	}
	item, err := row.toModel()
	if err != nil {
		return nil, err
	}
	stmt = `SELECT id, item_id, claimant_id, score, verified, created_at
FROM claim_attempts
WHERE item_id = ?
ORDER BY created_at, id`
	if err = r.db.ReadOnly.SelectContext(ctx, &item.Claims, stmt, id); err != nil {
		return nil, errors.Wrap(err, "select claim attempts", slog.String("item_id", id))
	}
	return item, nil
}

// SetAnswerKey replaces the answer key of an item and records who found it. An empty finderID keeps the current
// finder.
func (r *ItemRepository) SetAnswerKey(ctx context.Context, id string, key matching.AnswerKey, finderID string) error {
	if key == nil {
		key = matching.AnswerKey{}
	}
	encoded, err := json.Marshal(key)
	if err != nil {
		return errors.Wrap(err, "encode answer key")
	}
	stmt := `UPDATE items SET answer_key = ?, finder_id = COALESCE(NULLIF(?, ''), finder_id) WHERE id = ?`
	result, err := r.db.ReadWrite.ExecContext(ctx, stmt, string(encoded), finderID, id)
	if err != nil {
		return errors.Wrap(err, "update answer key", slog.String("item_id", id))
	}
	return requireAffected(result, id)
}

// RecordClaim appends a claim attempt and marks the item claimed when the attempt is verified. A claimed item stays
// claimed regardless of later failed attempts.
func (r *ItemRepository) RecordClaim(ctx context.Context, attempt models.ClaimAttempt) (err error) {
	var tx *sqlx.Tx
	if tx, err = r.db.ReadWrite.BeginTxx(ctx, nil); err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = errors.Join(err, errors.Wrap(rollbackErr, "rollback"))
			}
		}
	}()

	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	stmt := `UPDATE items SET is_claimed = (is_claimed OR ?) WHERE id = ?`
	var result sql.Result
	if result, err = tx.ExecContext(ctx, stmt, attempt.Verified, attempt.ItemID); err != nil {
		return errors.Wrap(err, "update claimed flag", slog.String("item_id", attempt.ItemID))
	}
	if err = requireAffected(result, attempt.ItemID); err != nil {
		return err
	}
	stmt = `INSERT INTO claim_attempts (id, item_id, claimant_id, score, verified, created_at)
VALUES (:id, :item_id, :claimant_id, :score, :verified, :created_at)`
	if _, err = tx.NamedExecContext(ctx, stmt, attempt); err != nil {
		return errors.Wrap(err, "insert claim attempt", slog.String("item_id", attempt.ItemID))
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

func requireAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.Wrap(ErrNotFound, "item", slog.String("item_id", id))
	}
	return nil
}

// Ping checks that the database answers queries.
func (r *ItemRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.ReadOnly.GetContext(ctx, &one, `SELECT 1`); err != nil {
		return errors.Wrap(err, "ping database")
	}
	return nil
}
