package models

import (
	"time"

	"github.com/myrjola/foundit/internal/matching"
)

// QuestionCount is the number of ownership verification questions generated per item.
const QuestionCount = 5

// Item is a found object awaiting its owner.
type Item struct {
	ID       string
	ImageURL string
	// Questions are the ownership verification questions shown to claimants.
	Questions []string
	// AnswerKey maps a question identifier to the finder's canonical answer. Never expose it to claimants.
	AnswerKey matching.AnswerKey
	// FinderID is empty until the finder submits the answer key with their identity.
	FinderID  string
	IsClaimed bool
	CreatedAt time.Time
	// Claims is the append-only claim history, oldest first.
	Claims []ClaimAttempt
}

// ClaimAttempt is one claimant's attempt to prove ownership of an item.
type ClaimAttempt struct {
	ID         string    `db:"id" json:"id"`
	ItemID     string    `db:"item_id" json:"item_id"`
	ClaimantID string    `db:"claimant_id" json:"claimant_id"`
	Score      float64   `db:"score" json:"score"`
	Verified   bool      `db:"verified" json:"verified"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
