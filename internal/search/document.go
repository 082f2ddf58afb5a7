// Package search provides full-text search over canonical books and
// authors using Bleve. Merged-away records are removed from the index
// so only live canonical entities are ever returned.
package search

import (
	"strconv"

	"github.com/GRead-Development/Server-sub000/internal/domain"
)

// DocType discriminates document kinds in the unified index.
type DocType string

const (
	DocTypeBook   DocType = "book"
	DocTypeAuthor DocType = "author"
)

// Document is the unified structure for the Bleve index. Books and
// authors share one index with type discrimination; author names and
// aliases are denormalized into book documents so a single query covers
// both entity kinds.
type Document struct {
	ID   string  `json:"id"`
	Type DocType `json:"type"`

	// Primary searchable text. Book: canonical title, Author: display name.
	Name string `json:"name"`

	// Book-specific fields.
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"` // denormalized
	ISBNs       []string `json:"isbns,omitempty"`  // all editions in the group

	// Author-specific fields.
	Bio     string   `json:"bio,omitempty"`
	Aliases []string `json:"aliases,omitempty"`

	// Numeric fields for range queries and sorting.
	PublicationYear int   `json:"publication_year,omitempty"`
	BookCount       int   `json:"book_count,omitempty"`
	CreatedAt       int64 `json:"created_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names so
// they match the index mapping (Bleve would otherwise use the Go field
// names).
func (d *Document) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"type":       string(d.Type),
		"name":       d.Name,
		"created_at": d.CreatedAt,
	}

	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if len(d.ISBNs) > 0 {
		m["isbns"] = d.ISBNs
	}
	if d.Bio != "" {
		m["bio"] = d.Bio
	}
	if len(d.Aliases) > 0 {
		m["aliases"] = d.Aliases
	}
	if d.PublicationYear > 0 {
		m["publication_year"] = d.PublicationYear
	}
	if d.BookCount > 0 {
		m["book_count"] = d.BookCount
	}

	return m
}

// BookDocID returns the index document id for a canonical book record.
func BookDocID(recordID int64) string {
	return "book:" + strconv.FormatInt(recordID, 10)
}

// AuthorDocID returns the index document id for an author.
func AuthorDocID(authorID string) string {
	return "author:" + authorID
}

// BookToDocument converts a canonical record plus its edition ledger to
// a Document. The author string is denormalized by the caller; the
// search package does not depend on the store.
func BookToDocument(rec *domain.Record, editions []*domain.Edition, author string) *Document {
	doc := &Document{
		ID:          BookDocID(rec.ID),
		Type:        DocTypeBook,
		Name:        rec.Title,
		Description: rec.Description,
		Author:      author,
		CreatedAt:   rec.CreatedAt.UnixMilli(),
	}

	for _, e := range editions {
		doc.ISBNs = append(doc.ISBNs, e.ISBN)
		if e.IsPrimary && e.PublicationYear > 0 {
			doc.PublicationYear = e.PublicationYear
		}
	}
	if doc.PublicationYear == 0 {
		doc.PublicationYear = rec.PublicationYear
	}

	return doc
}

// AuthorToDocument converts an author and its aliases to a Document.
func AuthorToDocument(a *domain.Author, aliases []*domain.AuthorAlias, bookCount int) *Document {
	doc := &Document{
		ID:        AuthorDocID(a.ID),
		Type:      DocTypeAuthor,
		Name:      a.DisplayName,
		Bio:       a.Bio,
		BookCount: bookCount,
		CreatedAt: a.CreatedAt.UnixMilli(),
	}
	for _, al := range aliases {
		doc.Aliases = append(doc.Aliases, al.Name)
	}
	return doc
}
