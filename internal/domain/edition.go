package domain

import "time"

// Edition is a single ISBN-bound printing belonging to a GID group.
//
// ISBNs are globally unique: one printing maps to exactly one group.
// Within a group at most one edition is primary; resolution falls back to
// oldest-by-creation when no primary is flagged.
type Edition struct {
	ISBN            string    `json:"isbn"`
	GID             int64     `json:"gid"`
	RecordID        int64     `json:"record_id"` // originating book record
	Label           string    `json:"label,omitempty"`
	PublicationYear int       `json:"publication_year,omitempty"`
	PageCount       int       `json:"page_count,omitempty"`
	IsPrimary       bool      `json:"is_primary"`
	CreatedAt       time.Time `json:"created_at"`
}

// EditionPreference records which ISBN a user considers "their copy" of a
// book group. Display-only; never affects canonical resolution.
// One row per (user, group), last write wins.
type EditionPreference struct {
	UserID    string    `json:"user_id"`
	GID       int64     `json:"gid"`
	ISBN      string    `json:"isbn"`
	UpdatedAt time.Time `json:"updated_at"`
}
