package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/GRead-Development/Server-sub000/internal/store"
	"github.com/GRead-Development/Server-sub000/internal/util"
)

// authorColumns is the ordered list of columns selected in author queries.
// Must match the scan order in scanAuthor.
const authorColumns = `id, display_name, canonical_name, slug, bio, created_at, updated_at`

// scanAuthor scans a sql.Row (or sql.Rows) into a domain.Author.
func scanAuthor(scanner interface{ Scan(dest ...any) error }) (*domain.Author, error) {
	var a domain.Author

	var (
		canonicalName sql.NullString
		bio           sql.NullString
		createdAt     string
		updatedAt     string
	)

	err := scanner.Scan(&a.ID, &a.DisplayName, &canonicalName, &a.Slug, &bio, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.CanonicalName = canonicalName.String
	a.Bio = bio.String
	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	a.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// scanAlias scans a sql.Row (or sql.Rows) into a domain.AuthorAlias.
func scanAlias(scanner interface{ Scan(dest ...any) error }) (*domain.AuthorAlias, error) {
	var al domain.AuthorAlias

	var (
		createdBy sql.NullString
		createdAt string
	)

	err := scanner.Scan(&al.ID, &al.AuthorID, &al.Name, &al.Slug, &createdBy, &createdAt)
	if err != nil {
		return nil, err
	}

	al.CreatedBy = createdBy.String
	al.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &al, nil
}

const aliasColumns = `id, author_id, name, slug, created_by, created_at`

// CreateAuthor inserts a new author row.
// Returns store.ErrAlreadyExists on slug collision; the slug-dedupe loop in
// the service layer treats that as a retry signal.
func (s *Store) CreateAuthor(ctx context.Context, a *domain.Author) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO authors (id, display_name, canonical_name, slug, bio, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.DisplayName,
		nullString(a.CanonicalName),
		a.Slug,
		nullString(a.Bio),
		formatTime(a.CreatedAt),
		formatTime(a.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// GetAuthor retrieves an author by ID.
func (s *Store) GetAuthor(ctx context.Context, id string) (*domain.Author, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+authorColumns+` FROM authors WHERE id = ?`, id)

	a, err := scanAuthor(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FindAuthor resolves a free-form name or slug to an author.
// Resolution order: exact display/canonical name, then derived slug, then
// alias name or slug. First hit wins; no fuzzy matching.
func (s *Store) FindAuthor(ctx context.Context, nameOrSlug string) (*domain.Author, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+authorColumns+` FROM authors
		 WHERE display_name = ?1 OR canonical_name = ?1
		 ORDER BY created_at ASC LIMIT 1`, nameOrSlug)

	a, err := scanAuthor(row)
	if err == nil {
		return a, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	slug := util.Slugify(nameOrSlug)
	if slug != "" {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+authorColumns+` FROM authors WHERE slug = ?`, slug)
		a, err = scanAuthor(row)
		if err == nil {
			return a, nil
		}
		if err != sql.ErrNoRows {
			return nil, err
		}
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT `+prefixColumns("a", authorColumns)+`
		FROM author_aliases al
		JOIN authors a ON a.id = al.author_id
		WHERE al.name = ? OR al.slug = ?
		ORDER BY al.created_at ASC LIMIT 1`, nameOrSlug, slug)

	a, err = scanAuthor(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// SlugInUse reports whether a slug is taken by any author or alias.
// Author and alias slugs share one namespace so lookups stay unambiguous.
func (s *Store) SlugInUse(ctx context.Context, slug string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 WHERE EXISTS (SELECT 1 FROM authors WHERE slug = ?1)
		   OR EXISTS (SELECT 1 FROM author_aliases WHERE slug = ?1)`, slug).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateAuthor performs a full row update on an existing author.
func (s *Store) UpdateAuthor(ctx context.Context, a *domain.Author) error {
	a.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE authors SET
			display_name = ?,
			canonical_name = ?,
			slug = ?,
			bio = ?,
			updated_at = ?
		WHERE id = ?`,
		a.DisplayName,
		nullString(a.CanonicalName),
		a.Slug,
		nullString(a.Bio),
		formatTime(a.UpdatedAt),
		a.ID,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
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

// DeleteAuthor removes an author and its aliases.
// Returns errors.ErrAuthorHasBooks while any book link exists; callers must
// unlink first.
func (s *Store) DeleteAuthor(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var links int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM book_authors WHERE author_id = ?`, id).Scan(&links); err != nil {
		return err
	}
	if links > 0 {
		return errors.AuthorHasBooks("author still linked to books")
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM author_aliases WHERE author_id = ?`, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM authors WHERE id = ?`, id)
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

	return tx.Commit()
}

// CreateAlias inserts an alias row.
// Returns store.ErrNotFound if the author does not exist and
// store.ErrAlreadyExists on slug collision (retry signal for the dedupe loop).
func (s *Store) CreateAlias(ctx context.Context, al *domain.AuthorAlias) error {
	if al.CreatedAt.IsZero() {
		al.CreatedAt = time.Now()
	}

	exists, err := s.authorExists(ctx, al.AuthorID)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO author_aliases (id, author_id, name, slug, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		al.ID,
		al.AuthorID,
		al.Name,
		al.Slug,
		nullString(al.CreatedBy),
		formatTime(al.CreatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// AliasesForAuthor returns an author's aliases, oldest first.
func (s *Store) AliasesForAuthor(ctx context.Context, authorID string) ([]*domain.AuthorAlias, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+aliasColumns+` FROM author_aliases WHERE author_id = ?
		 ORDER BY created_at ASC, id ASC`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []*domain.AuthorAlias
	for rows.Next() {
		al, err := scanAlias(rows)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, al)
	}
	return aliases, rows.Err()
}

// authorExists reports whether an author row exists.
func (s *Store) authorExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM authors WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListAuthors returns every author ordered by display name.
func (s *Store) ListAuthors(ctx context.Context) ([]*domain.Author, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+authorColumns+` FROM authors ORDER BY display_name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []*domain.Author
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}
