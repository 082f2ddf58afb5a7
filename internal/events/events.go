// Package events carries in-process notifications about identity
// changes. Merges publish here after commit; subscribers (search
// reindexing, audit logging) react asynchronously and never affect the
// outcome of the transaction that produced the event.
package events

import "time"

// EventType represents the type of identity event.
type EventType string

const (
	// EventBooksMerged fires after a book merge commits.
	EventBooksMerged EventType = "identity.books_merged"
	// EventAuthorsMerged fires after an author merge commits.
	EventAuthorsMerged EventType = "identity.authors_merged"
	// EventCanonicalChanged fires when a group's canonical member is
	// reassigned manually.
	EventCanonicalChanged EventType = "identity.canonical_changed"
	// EventAuthorCreated fires when a new author row is minted.
	EventAuthorCreated EventType = "author.created"
)

// Event is an identity event with a type-specific payload.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// BooksMergedData is the payload for EventBooksMerged.
type BooksMergedData struct {
	FromID int64  `json:"from_id"`
	ToID   int64  `json:"to_id"`
	GID    int64  `json:"gid"`
	Actor  string `json:"actor,omitempty"`
}

// AuthorsMergedData is the payload for EventAuthorsMerged.
type AuthorsMergedData struct {
	FromID   string `json:"from_id"`
	ToID     string `json:"to_id"`
	FromName string `json:"from_name"`
	Actor    string `json:"actor,omitempty"`
}

// CanonicalChangedData is the payload for EventCanonicalChanged.
type CanonicalChangedData struct {
	GID      int64 `json:"gid"`
	RecordID int64 `json:"record_id"`
}

// AuthorCreatedData is the payload for EventAuthorCreated.
type AuthorCreatedData struct {
	AuthorID string `json:"author_id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
}
