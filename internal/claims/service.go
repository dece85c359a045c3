// Package claims verifies ownership claims on found items and records every attempt.
package claims

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/myrjola/foundit/internal/errors"
	"github.com/myrjola/foundit/internal/logging"
	"github.com/myrjola/foundit/internal/matching"
	"github.com/myrjola/foundit/internal/models"
)

var (
	ErrAnswerKeyMissing = errors.NewSentinel("answer key not set for this item")
	ErrTooManyAttempts  = errors.NewSentinel("too many claim attempts")
	ErrInvalidRequest   = errors.NewSentinel("invalid request")
)

// ItemStore persists items and their claim history, see repositories.ItemRepository.
type ItemStore interface {
	Get(ctx context.Context, id string) (*models.Item, error)
	SetAnswerKey(ctx context.Context, id string, key matching.AnswerKey, finderID string) error
	RecordClaim(ctx context.Context, attempt models.ClaimAttempt) error
}

// ChatStore opens chat rooms between finders and verified claimants, see repositories.ChatRepository.
type ChatStore interface {
	Open(ctx context.Context, itemID, finderID, claimantID string) error
}

type Request struct {
	ItemID     string
	Answers    map[string]string
	ClaimantID string
}

type Outcome struct {
	AttemptID string `json:"attempt_id"`
	Verified  bool   `json:"verified"`
	// Score is the share of matched answers rounded to two decimals.
	Score       float64 `json:"score"`
	RevealImage bool    `json:"reveal_image"`
	// ImageURL is only set for verified claims.
	ImageURL    *string `json:"image_url"`
	ChatEnabled bool    `json:"chat_enabled"`
}

type Service struct {
	items   ItemStore
	chats   ChatStore
	scorer  *matching.Scorer
	limiter *Limiter
	logger  *slog.Logger
}

func NewService(items ItemStore, chats ChatStore, scorer *matching.Scorer, limiter *Limiter, logger *slog.Logger) *Service {
	return &Service{
		items:   items,
		chats:   chats,
		scorer:  scorer,
		limiter: limiter,
		logger:  logger.With("source", "claims.Service"),
	}
}

// SetAnswerKey stores the finder's answers as the item's answer key. An empty finderID keeps the current finder.
func (s *Service) SetAnswerKey(ctx context.Context, itemID string, answers map[string]string, finderID string) error {
	if itemID == "" {
		return errors.Wrap(ErrInvalidRequest, "missing item id")
	}
	if len(answers) == 0 {
		return errors.Wrap(ErrInvalidRequest, "empty answer key", slog.String("item_id", itemID))
	}
	if err := s.items.SetAnswerKey(ctx, itemID, answers, finderID); err != nil {
		return errors.Wrap(err, "set answer key")
	}
	return nil
}

// Evaluate scores the claimant's answers, appends the attempt to the item's claim history and opens a chat with
// the finder when the claim is verified.
func (s *Service) Evaluate(ctx context.Context, req Request) (*Outcome, error) {
	if req.ItemID == "" || strings.TrimSpace(req.ClaimantID) == "" {
		return nil, errors.Wrap(ErrInvalidRequest, "item id and claimant id are required")
	}
	ctx = logging.WithAttrs(ctx, slog.String("item_id", req.ItemID), slog.String("claimant_id", req.ClaimantID))

	item, err := s.items.Get(ctx, req.ItemID)
	if err != nil {
		return nil, errors.Wrap(err, "get item")
	}
	if len(item.AnswerKey) == 0 {
		return nil, ErrAnswerKeyMissing
	}
	if !s.limiter.Allow(req.ItemID, req.ClaimantID) {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "claim attempt throttled")
		return nil, ErrTooManyAttempts
	}

	eval := s.scorer.Evaluate(item.AnswerKey, req.Answers)
	attempt := models.ClaimAttempt{
		ID:         uuid.NewString(),
		ItemID:     item.ID,
		ClaimantID: req.ClaimantID,
		Score:      round2(eval.Score),
		Verified:   eval.Verified,
	}
	if err = s.items.RecordClaim(ctx, attempt); err != nil {
		return nil, errors.Wrap(err, "record claim")
	}

	if eval.Verified && item.FinderID != "" {
		if err = s.chats.Open(ctx, item.ID, item.FinderID, req.ClaimantID); err != nil {
			return nil, errors.Wrap(err, "open chat")
		}
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "claim evaluated",
		slog.String("attempt_id", attempt.ID),
		slog.Int("matched", eval.Matched),
		slog.Int("total", eval.Total),
		slog.Bool("verified", eval.Verified))

	outcome := &Outcome{
		AttemptID:   attempt.ID,
		Verified:    eval.Verified,
		Score:       attempt.Score,
		RevealImage: eval.Verified,
		ImageURL:    nil,
		ChatEnabled: eval.Verified,
	}
	if eval.Verified {
		imageURL := item.ImageURL
		outcome.ImageURL = &imageURL
	}
	return outcome, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100 //nolint:mnd // two decimals
}
