package domain

import "time"

// RecordType discriminates content records.
type RecordType string

const (
	RecordTypeBook RecordType = "book"
)

// Record is a content record owned by the record-content collaborator
// (a book "post"). The engine reads its legacy single-value author and ISBN
// fields during migration and overwrites its display fields during a
// metadata-synced merge; it never owns the record's content otherwise.
type Record struct {
	ID          int64      `json:"id"`
	Type        RecordType `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`

	// Legacy free-text fields predating the registries. Migration input only.
	AuthorText string `json:"author_text,omitempty"`
	ISBNText   string `json:"isbn_text,omitempty"`

	PageCount       int    `json:"page_count,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	CoverURL        string `json:"cover_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
