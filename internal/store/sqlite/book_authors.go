package sqlite

import (
	"context"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/store"
)

// LinkBookAuthor links a book to an author at a listing position.
// Upsert: if the pair already exists only the position is updated, so
// (book, author) uniqueness is never violated.
func (s *Store) LinkBookAuthor(ctx context.Context, bookID int64, authorID string, position int) error {
	exists, err := s.authorExists(ctx, authorID)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO book_authors (book_id, author_id, position)
		VALUES (?, ?, ?)
		ON CONFLICT(book_id, author_id) DO UPDATE SET position = excluded.position`,
		bookID, authorID, position)
	return err
}

// UnlinkBookAuthor removes a book/author link.
func (s *Store) UnlinkBookAuthor(ctx context.Context, bookID int64, authorID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM book_authors WHERE book_id = ? AND author_id = ?`, bookID, authorID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AuthorsForBook returns a book's authors ordered by listing position, then
// display name.
func (s *Store) AuthorsForBook(ctx context.Context, bookID int64) ([]*domain.BookAuthor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ba.book_id, ba.author_id, ba.position
		FROM book_authors ba
		JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id = ?
		ORDER BY ba.position ASC, a.display_name ASC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*domain.BookAuthor
	for rows.Next() {
		var ba domain.BookAuthor
		if err := rows.Scan(&ba.BookID, &ba.AuthorID, &ba.Position); err != nil {
			return nil, err
		}
		links = append(links, &ba)
	}
	return links, rows.Err()
}

// BooksForAuthor returns the book ids linked to an author.
func (s *Store) BooksForAuthor(ctx context.Context, authorID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT book_id FROM book_authors WHERE author_id = ? ORDER BY book_id ASC`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
