package models

import "time"

type ReportKind string

const (
	ReportKindLost  ReportKind = "lost"
	ReportKindFound ReportKind = "found"
)

// Opposite returns the kind of report that can match this one.
func (k ReportKind) Opposite() ReportKind {
	if k == ReportKindLost {
		return ReportKindFound
	}
	return ReportKindLost
}

func (k ReportKind) Valid() bool {
	return k == ReportKindLost || k == ReportKindFound
}

// Report is a free-text description of a lost or found object.
type Report struct {
	ID          string     `db:"id" json:"id"`
	Kind        ReportKind `db:"kind" json:"kind"`
	ReporterID  string     `db:"reporter_id" json:"reporter_id"`
	Description string     `db:"description" json:"description"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
