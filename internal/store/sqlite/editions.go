package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/GRead-Development/Server-sub000/internal/store"
)

// editionColumns is the ordered list of columns selected in edition queries.
// Must match the scan order in scanEdition.
const editionColumns = `isbn, gid, record_id, label, publication_year, page_count, is_primary, created_at`

// scanEdition scans a sql.Row (or sql.Rows) into a domain.Edition.
func scanEdition(scanner interface{ Scan(dest ...any) error }) (*domain.Edition, error) {
	var e domain.Edition

	var (
		label     sql.NullString
		pubYear   sql.NullInt64
		pageCount sql.NullInt64
		isPrimary int
		createdAt string
	)

	err := scanner.Scan(&e.ISBN, &e.GID, &e.RecordID, &label, &pubYear, &pageCount, &isPrimary, &createdAt)
	if err != nil {
		return nil, err
	}

	e.Label = label.String
	e.PublicationYear = int(pubYear.Int64)
	e.PageCount = int(pageCount.Int64)
	e.IsPrimary = isPrimary != 0
	e.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// AddEdition binds an ISBN to a GID group.
// Returns errors.ErrDuplicateISBN if the ISBN exists anywhere in the system;
// ISBNs identify a physical printing and are never reused across groups.
//
// When IsPrimary is set, every other primary flag in the group is cleared
// first with a single UPDATE, inside the same transaction, so readers never
// observe two primaries.
func (s *Store) AddEdition(ctx context.Context, e *domain.Edition) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := addEditionTx(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

// addEditionTx is AddEdition inside an existing transaction.
func addEditionTx(ctx context.Context, tx *sql.Tx, e *domain.Edition) error {
	if e.IsPrimary {
		if _, err := tx.ExecContext(ctx,
			`UPDATE editions SET is_primary = 0 WHERE gid = ?`, e.GID); err != nil {
			return err
		}
	}

	isPrimary := 0
	if e.IsPrimary {
		isPrimary = 1
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO editions (isbn, gid, record_id, label, publication_year, page_count, is_primary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ISBN,
		e.GID,
		e.RecordID,
		nullString(e.Label),
		nullInt64(int64(e.PublicationYear)),
		nullInt64(int64(e.PageCount)),
		isPrimary,
		formatTime(e.CreatedAt),
	)
	if isUniqueViolation(err) {
		return errors.DuplicateISBN(e.ISBN)
	}
	return err
}

// GetEdition retrieves an edition by ISBN.
func (s *Store) GetEdition(ctx context.Context, isbn string) (*domain.Edition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+editionColumns+` FROM editions WHERE isbn = ?`, isbn)

	e, err := scanEdition(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// RemoveEdition deletes an edition row. The primary flag is not reassigned;
// callers needing a primary afterwards call SetPrimaryEdition.
func (s *Store) RemoveEdition(ctx context.Context, isbn string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM editions WHERE isbn = ?`, isbn)
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

// SetPrimaryEdition makes isbn the primary edition of its group.
// Returns errors.ErrEditionNotInGroup if the ISBN belongs elsewhere.
func (s *Store) SetPrimaryEdition(ctx context.Context, gid int64, isbn string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var foundGID int64
	err = tx.QueryRowContext(ctx,
		`SELECT gid FROM editions WHERE isbn = ?`, isbn).Scan(&foundGID)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if foundGID != gid {
		return errors.EditionNotInGroupf("edition %q does not belong to group %d", isbn, gid)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE editions SET is_primary = 0 WHERE gid = ?`, gid); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE editions SET is_primary = 1 WHERE isbn = ?`, isbn); err != nil {
		return err
	}

	return tx.Commit()
}

// EditionsForGroup returns every edition of a group, primary first, then by
// creation time. This ordering is the canonical fallback resolution rule.
func (s *Store) EditionsForGroup(ctx context.Context, gid int64) ([]*domain.Edition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+editionColumns+` FROM editions WHERE gid = ?
		 ORDER BY is_primary DESC, created_at ASC, isbn ASC`, gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var editions []*domain.Edition
	for rows.Next() {
		e, err := scanEdition(rows)
		if err != nil {
			return nil, err
		}
		editions = append(editions, e)
	}
	return editions, rows.Err()
}

// EnsureMigrated backfills a group's editions from a record's legacy
// single-ISBN field. No-op when the group already has any edition, when the
// legacy field is empty, or when the ISBN is already tracked elsewhere.
// Idempotent by construction.
func (s *Store) EnsureMigrated(ctx context.Context, recordID int64) error {
	gid, err := s.GetOrCreateGID(ctx, recordID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.ensureMigratedTx(ctx, tx, recordID, gid); err != nil {
		return err
	}
	return tx.Commit()
}

// ensureMigratedTx is EnsureMigrated inside an existing transaction.
func (s *Store) ensureMigratedTx(ctx context.Context, tx *sql.Tx, recordID, gid int64) error {
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM editions WHERE gid = ?`, gid).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var isbnText sql.NullString
	var pubYear, pageCount sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT isbn_text, publication_year, page_count FROM records WHERE id = ?`, recordID).
		Scan(&isbnText, &pubYear, &pageCount)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if !isbnText.Valid || isbnText.String == "" {
		return nil
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO editions (isbn, gid, record_id, publication_year, page_count, is_primary, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(isbn) DO NOTHING`,
		isbnText.String, gid, recordID, pubYear, pageCount, formatTime(time.Now()))
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 && s.logger != nil {
		// The legacy ISBN already belongs to another group. Leave it there;
		// the operator resolves the conflict, not the backfill.
		s.logger.Warn("legacy isbn already tracked elsewhere, skipping backfill",
			"record_id", recordID, "gid", gid, "isbn", isbnText.String)
	}
	return nil
}

// SetEditionPreference records which ISBN a user considers their copy of a
// group. One row per (user, group); last write wins.
// The ISBN must belong to the group at write time.
func (s *Store) SetEditionPreference(ctx context.Context, pref *domain.EditionPreference) error {
	var foundGID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT gid FROM editions WHERE isbn = ?`, pref.ISBN).Scan(&foundGID)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if foundGID != pref.GID {
		return errors.EditionNotInGroupf("edition %q does not belong to group %d", pref.ISBN, pref.GID)
	}

	pref.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO edition_preferences (user_id, gid, isbn, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, gid) DO UPDATE SET isbn = excluded.isbn, updated_at = excluded.updated_at`,
		pref.UserID, pref.GID, pref.ISBN, formatTime(pref.UpdatedAt))
	return err
}

// ResolveForUser returns the edition a user should see for a group:
// their recorded preference if it still belongs to the group, else the
// primary edition, else the earliest-created one. Total for non-empty
// groups; returns store.ErrNotFound only when the group has no editions.
func (s *Store) ResolveForUser(ctx context.Context, userID string, gid int64) (*domain.Edition, error) {
	// Preference tier: the stored ISBN must still be in the group. Editions
	// move between groups on merge, so the join re-validates membership.
	row := s.db.QueryRowContext(ctx, `
		SELECT `+prefixColumns("e", editionColumns)+`
		FROM edition_preferences p
		JOIN editions e ON e.isbn = p.isbn AND e.gid = ?
		WHERE p.user_id = ? AND p.gid = ?`, gid, userID, gid)

	e, err := scanEdition(row)
	if err == nil {
		return e, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	// Primary, then oldest. A single ordered query covers both tiers.
	row = s.db.QueryRowContext(ctx, `
		SELECT `+editionColumns+` FROM editions WHERE gid = ?
		ORDER BY is_primary DESC, created_at ASC, isbn ASC LIMIT 1`, gid)

	e, err = scanEdition(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
