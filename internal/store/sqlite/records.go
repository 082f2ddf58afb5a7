package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/store"
)

// recordColumns is the ordered list of columns selected in record queries.
// Must match the scan order in scanRecord.
const recordColumns = `id, record_type, title, description, author_text, isbn_text,
	page_count, publication_year, cover_url, created_at, updated_at`

// scanRecord scans a sql.Row (or sql.Rows via its Scan method) into a domain.Record.
func scanRecord(scanner interface{ Scan(dest ...any) error }) (*domain.Record, error) {
	var r domain.Record

	var (
		recordType  string
		description sql.NullString
		authorText  sql.NullString
		isbnText    sql.NullString
		pageCount   sql.NullInt64
		pubYear     sql.NullInt64
		coverURL    sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&r.ID,
		&recordType,
		&r.Title,
		&description,
		&authorText,
		&isbnText,
		&pageCount,
		&pubYear,
		&coverURL,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Type = domain.RecordType(recordType)
	r.Description = description.String
	r.AuthorText = authorText.String
	r.ISBNText = isbnText.String
	r.PageCount = int(pageCount.Int64)
	r.PublicationYear = int(pubYear.Int64)
	r.CoverURL = coverURL.String

	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	r.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// CreateRecord inserts a content record.
// Returns store.ErrAlreadyExists on duplicate ID.
func (s *Store) CreateRecord(ctx context.Context, r *domain.Record) error {
	if r.Type == "" {
		r.Type = domain.RecordTypeBook
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (
			id, record_type, title, description, author_text, isbn_text,
			page_count, publication_year, cover_url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		string(r.Type),
		r.Title,
		nullString(r.Description),
		nullString(r.AuthorText),
		nullString(r.ISBNText),
		nullInt64(int64(r.PageCount)),
		nullInt64(int64(r.PublicationYear)),
		nullString(r.CoverURL),
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// GetRecord retrieves a content record by ID.
// Returns store.ErrNotFound if the record does not exist.
func (s *Store) GetRecord(ctx context.Context, id int64) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id)

	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRecord performs a full row update on an existing record.
func (s *Store) UpdateRecord(ctx context.Context, r *domain.Record) error {
	r.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE records SET
			title = ?,
			description = ?,
			author_text = ?,
			isbn_text = ?,
			page_count = ?,
			publication_year = ?,
			cover_url = ?,
			updated_at = ?
		WHERE id = ?`,
		r.Title,
		nullString(r.Description),
		nullString(r.AuthorText),
		nullString(r.ISBNText),
		nullInt64(int64(r.PageCount)),
		nullInt64(int64(r.PublicationYear)),
		nullString(r.CoverURL),
		formatTime(r.UpdatedAt),
		r.ID,
	)
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

// RecordExists reports whether a record of the given type exists.
func (s *Store) RecordExists(ctx context.Context, id int64, typ domain.RecordType) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM records WHERE id = ? AND record_type = ?`, id, string(typ)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// copyRecordMetadata is the default metadata-sync implementation: it copies
// the display fields of the canonical record onto the merged-away record, in
// the caller's transaction. The legacy isbn_text field is left untouched; it
// is a migration input, not display state.
func (s *Store) copyRecordMetadata(ctx context.Context, tx *sql.Tx, canonicalID, mergedID int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE records SET
			title = (SELECT title FROM records WHERE id = ?1),
			description = (SELECT description FROM records WHERE id = ?1),
			author_text = (SELECT author_text FROM records WHERE id = ?1),
			page_count = (SELECT page_count FROM records WHERE id = ?1),
			publication_year = (SELECT publication_year FROM records WHERE id = ?1),
			cover_url = (SELECT cover_url FROM records WHERE id = ?1),
			updated_at = ?2
		WHERE id = ?3`,
		canonicalID, formatTime(time.Now()), mergedID)
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

// ListBookRecordIDs returns the ids of every book record, for full
// reindex passes.
func (s *Store) ListBookRecordIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM records WHERE record_type = ? ORDER BY id ASC`,
		string(domain.RecordTypeBook))
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
