package domain

import "time"

// Author is a canonical author record.
// Created on first unmatched mention of a name string; never hard-deleted
// while it owns any book link.
type Author struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	CanonicalName string    `json:"canonical_name,omitempty"` // "Tolkien, J. R. R." for sorting
	Slug          string    `json:"slug"`
	Bio           string    `json:"bio,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AuthorAlias is a secondary name string resolving to an author.
// Populated by operators and automatically by author merges (the merged-away
// display name becomes an alias of the survivor).
type AuthorAlias struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BookAuthor links a book record to an author with a listing position
// (1 = first-listed author). Unique on (book, author).
type BookAuthor struct {
	BookID   int64  `json:"book_id"`
	AuthorID string `json:"author_id"`
	Position int    `json:"position"`
}

// AuthorMerge is an append-only provenance row for an author merge.
type AuthorMerge struct {
	ID        string    `json:"id"`
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	FromName  string    `json:"from_name"` // display name at merge time; the source row is deleted
	MergedBy  string    `json:"merged_by"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
