package models

import "time"

// Chat connects the finder of an item with a verified claimant.
type Chat struct {
	ItemID      string    `db:"item_id" json:"item_id"`
	FinderID    string    `db:"finder_id" json:"finder_id"`
	ClaimantID  string    `db:"claimant_id" json:"claimant_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}

type Message struct {
	ID        int64     `db:"id" json:"id"`
	ItemID    string    `db:"item_id" json:"item_id"`
	SenderID  string    `db:"sender_id" json:"sender_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
