package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"
	"time"

	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/models"
	"github.com/myrjola/foundit/internal/sqlite"
)

// DefaultHistoryLimit caps how many messages History returns when no limit is given.
const DefaultHistoryLimit = 50

type ChatRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewChatRepository(db *sqlite.Database, logger *slog.Logger) *ChatRepository {
	return &ChatRepository{
		db:     db,
		logger: logger.With("source", "ChatRepository"),
	}
}

// Open creates the chat room of an item or merges the participants into the existing one.
//
// Empty participant ids leave the stored participant untouched.
func (r *ChatRepository) Open(ctx context.Context, itemID, finderID, claimantID string) error {
	now := time.Now().UTC()
	stmt := `INSERT INTO chats (item_id, finder_id, claimant_id, created_at, last_updated)
VALUES (:item_id, :finder_id, :claimant_id, :now, :now)
ON CONFLICT (item_id) DO UPDATE SET finder_id    = COALESCE(NULLIF(excluded.finder_id, ''), finder_id),
                                    claimant_id  = COALESCE(NULLIF(excluded.claimant_id, ''), claimant_id),
                                    last_updated = excluded.last_updated`
	params := []any{
		sql.Named("item_id", itemID),
		sql.Named("finder_id", finderID),
		sql.Named("claimant_id", claimantID),
		sql.Named("now", now),
	}
	if _, err := r.db.ReadWrite.ExecContext(ctx, stmt, params...); err != nil {
		return errors.Wrap(err, "upsert chat", slog.String("item_id", itemID))
	}
	return nil
}

// Get returns the chat room of an item or ErrNotFound.
func (r *ChatRepository) Get(ctx context.Context, itemID string) (*models.Chat, error) {
	var chat models.Chat
	stmt := `SELECT item_id, finder_id, claimant_id, created_at, last_updated FROM chats WHERE item_id = ?`
	if err := r.db.ReadOnly.GetContext(ctx, &chat, stmt, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "chat", slog.String("item_id", itemID))
		}
		return nil, errors.Wrap(err, "select chat", slog.String("item_id", itemID))
	}
	return &chat, nil
}

// AddMessage appends a message to the chat room of an item and bumps its last update time.
func (r *ChatRepository) AddMessage(ctx context.Context, itemID, senderID, body string) (_ *models.Message, err error) {
	tx, err := r.db.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = errors.Join(err, errors.Wrap(rollbackErr, "rollback"))
			}
		}
	}()

	msg := models.Message{
		ID:        0,
		ItemID:    itemID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	result, err := tx.ExecContext(ctx, `UPDATE chats SET last_updated = ? WHERE item_id = ?`, msg.CreatedAt, itemID)
	if err != nil {
		return nil, errors.Wrap(err, "bump chat", slog.String("item_id", itemID))
	}
	var affected int64
	if affected, err = result.RowsAffected(); err != nil {
		return nil, errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		err = errors.Wrap(ErrNotFound, "chat", slog.String("item_id", itemID))
		return nil, err
	}
	stmt := `INSERT INTO chat_messages (item_id, sender_id, body, created_at)
VALUES (:item_id, :sender_id, :body, :created_at)`
	if result, err = tx.NamedExecContext(ctx, stmt, msg); err != nil {
		return nil, errors.Wrap(err, "insert message", slog.String("item_id", itemID))
	}
	if msg.ID, err = result.LastInsertId(); err != nil {
		return nil, errors.Wrap(err, "last insert id")
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return &msg, nil
}

// History returns up to limit of the latest messages of a chat room, oldest first.
func (r *ChatRepository) History(ctx context.Context, itemID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var messages []models.Message
	stmt := `SELECT id, item_id, sender_id, body, created_at
FROM chat_messages
WHERE item_id = ?
ORDER BY id DESC
LIMIT ?`
	if err := r.db.ReadOnly.SelectContext(ctx, &messages, stmt, itemID, limit); err != nil {
		return nil, errors.Wrap(err, "select messages", slog.String("item_id", itemID))
	}
	slices.Reverse(messages)
	return messages, nil
}
