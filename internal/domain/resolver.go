package domain

// CanonicalView is the live canonical representation of any book identifier.
// External collaborators resolve through this before acting on a record id,
// so they never operate on a merged-away record.
type CanonicalView struct {
	RecordID int64      `json:"record_id"` // canonical member of the group
	GID      int64      `json:"gid"`
	Editions []*Edition `json:"editions"`
	Aliases  []int64    `json:"aliases"` // merged-away member record ids
}

// MatchKind discriminates search candidate types.
type MatchKind string

const (
	MatchBook   MatchKind = "book"
	MatchAuthor MatchKind = "author"
)

// SearchMatch is one candidate from a name/title search. Merged-away entities
// are never returned directly; their canonical representative is substituted.
type SearchMatch struct {
	Kind     MatchKind `json:"kind"`
	BookID   int64     `json:"book_id,omitempty"`   // canonical record id when Kind == book
	AuthorID string    `json:"author_id,omitempty"` // when Kind == author
	Name     string    `json:"name"`                // canonical title or display name
}
