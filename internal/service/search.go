package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/search"
	"github.com/GRead-Development/Server-sub000/internal/store"
)

// SearchService keeps the Bleve index in sync with the registry and
// answers queries. Only canonical records and live authors are indexed;
// merges remove the losing side's document.
type SearchService struct {
	store  store.Store
	index  *search.Index
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(st store.Store, index *search.Index, logger *slog.Logger) *SearchService {
	return &SearchService{store: st, index: index, logger: logger}
}

// Search executes a query against the index.
func (s *SearchService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	return s.index.Search(ctx, params)
}

// IndexBook indexes the canonical view of a record's group. Passing a
// merged-away id indexes its canonical representative, so callers never
// need to pre-resolve.
func (s *SearchService) IndexBook(ctx context.Context, recordID int64) error {
	doc, err := s.bookDocument(ctx, recordID)
	if err != nil {
		return err
	}
	return s.index.IndexDocument(doc)
}

// RemoveBook drops a record's document from the index.
func (s *SearchService) RemoveBook(recordID int64) error {
	return s.index.DeleteDocument(search.BookDocID(recordID))
}

// IndexAuthor indexes an author and its aliases.
func (s *SearchService) IndexAuthor(ctx context.Context, authorID string) error {
	doc, err := s.authorDocument(ctx, authorID)
	if err != nil {
		return err
	}
	return s.index.IndexDocument(doc)
}

// RemoveAuthor drops an author's document from the index.
func (s *SearchService) RemoveAuthor(authorID string) error {
	return s.index.DeleteDocument(search.AuthorDocID(authorID))
}

// DocumentCount returns the number of indexed documents.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}

// ReindexAll rebuilds the index from the registry: every canonical
// book record and every author. Merged-away records are skipped, so a
// rebuild also clears out any documents a crashed merge left behind.
func (s *SearchService) ReindexAll(ctx context.Context) error {
	if err := s.index.Rebuild(); err != nil {
		return err
	}

	ids, err := s.store.ListBookRecordIDs(ctx)
	if err != nil {
		return err
	}

	seenGroups := make(map[int64]bool)
	var docs []*search.Document
	for _, recordID := range ids {
		view, err := s.store.CanonicalView(ctx, recordID)
		if err != nil {
			return err
		}
		if seenGroups[view.GID] {
			continue
		}
		seenGroups[view.GID] = true

		doc, err := s.bookDocument(ctx, view.RecordID)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	authors, err := s.store.ListAuthors(ctx)
	if err != nil {
		return err
	}
	for _, a := range authors {
		doc, err := s.authorDocument(ctx, a.ID)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	if err := s.index.IndexDocuments(docs); err != nil {
		return err
	}

	s.logger.Info("search reindex complete",
		"books", len(seenGroups), "authors", len(authors))
	return nil
}

// bookDocument builds the index document for a record's canonical view.
func (s *SearchService) bookDocument(ctx context.Context, recordID int64) (*search.Document, error) {
	view, err := s.store.CanonicalView(ctx, recordID)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.GetRecord(ctx, view.RecordID)
	if err != nil {
		return nil, err
	}

	authorNames, err := s.authorNamesForBook(ctx, view.RecordID, rec)
	if err != nil {
		return nil, err
	}

	return search.BookToDocument(rec, view.Editions, authorNames), nil
}

// authorNamesForBook joins the linked author display names, falling
// back to the legacy free-text field for unprocessed records.
func (s *SearchService) authorNamesForBook(ctx context.Context, bookID int64, rec *domain.Record) (string, error) {
	links, err := s.store.AuthorsForBook(ctx, bookID)
	if err != nil {
		return "", err
	}
	if len(links) == 0 {
		return rec.AuthorText, nil
	}

	names := make([]string, 0, len(links))
	for _, link := range links {
		a, err := s.store.GetAuthor(ctx, link.AuthorID)
		if err != nil {
			return "", err
		}
		names = append(names, a.DisplayName)
	}
	return strings.Join(names, ", "), nil
}

// authorDocument builds the index document for an author.
func (s *SearchService) authorDocument(ctx context.Context, authorID string) (*search.Document, error) {
	a, err := s.store.GetAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	aliases, err := s.store.AliasesForAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	books, err := s.store.BooksForAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return search.AuthorToDocument(a, aliases, len(books)), nil
}
