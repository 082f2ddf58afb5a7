package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/store"
)

// memberColumns is the ordered list of columns selected in group member
// queries. Must match the scan order in scanGroupMember.
const memberColumns = `record_id, gid, is_canonical, merged_by, merge_reason, merged_at, created_at`

// scanGroupMember scans a sql.Row (or sql.Rows) into a domain.GroupMember.
func scanGroupMember(scanner interface{ Scan(dest ...any) error }) (*domain.GroupMember, error) {
	var m domain.GroupMember

	var (
		isCanonical int
		mergedBy    sql.NullString
		mergeReason sql.NullString
		mergedAt    sql.NullString
		createdAt   string
	)

	err := scanner.Scan(&m.RecordID, &m.GID, &isCanonical, &mergedBy, &mergeReason, &mergedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	m.IsCanonical = isCanonical != 0
	m.MergedBy = mergedBy.String
	m.MergeReason = mergeReason.String
	m.MergedAt, err = parseNullableTime(mergedAt)
	if err != nil {
		return nil, err
	}
	m.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// GetOrCreateGID returns the GID of a record, assigning one on first contact.
// A fresh record becomes its own group: gid = record_id, canonical.
//
// Safe to call concurrently for the same record: the loser of a duplicate
// insert re-reads instead of failing (the GID is the record's own id, so the
// competing writes are identical).
func (s *Store) GetOrCreateGID(ctx context.Context, recordID int64) (int64, error) {
	gid, err := s.GetGID(ctx, recordID)
	if err == nil {
		return gid, nil
	}
	if err != store.ErrNotFound {
		return 0, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO book_identities (record_id, gid, is_canonical, created_at)
		VALUES (?, ?, 1, ?)`,
		recordID, recordID, formatTime(time.Now()))
	if isUniqueViolation(err) {
		// Lost the race; the row now exists. Treat as a cache-miss retry.
		return s.GetGID(ctx, recordID)
	}
	if err != nil {
		return 0, err
	}
	return recordID, nil
}

// getOrCreateGIDTx is GetOrCreateGID inside an existing transaction.
func getOrCreateGIDTx(ctx context.Context, tx *sql.Tx, recordID int64) (int64, error) {
	var gid int64
	err := tx.QueryRowContext(ctx,
		`SELECT gid FROM book_identities WHERE record_id = ?`, recordID).Scan(&gid)
	if err == nil {
		return gid, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO book_identities (record_id, gid, is_canonical, created_at)
		VALUES (?, ?, 1, ?)`,
		recordID, recordID, formatTime(time.Now())); err != nil {
		return 0, err
	}
	return recordID, nil
}

// GetGID returns the GID of a record, or store.ErrNotFound if the record has
// never been assigned one. Pure lookup, no side effects.
func (s *Store) GetGID(ctx context.Context, recordID int64) (int64, error) {
	var gid int64
	err := s.db.QueryRowContext(ctx,
		`SELECT gid FROM book_identities WHERE record_id = ?`, recordID).Scan(&gid)
	if err == sql.ErrNoRows {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return gid, nil
}

// GetGroupMember returns a record's full membership row.
func (s *Store) GetGroupMember(ctx context.Context, recordID int64) (*domain.GroupMember, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM book_identities WHERE record_id = ?`, recordID)

	m, err := scanGroupMember(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordsInGroup returns the record ids of every member of a GID group,
// oldest first.
func (s *Store) RecordsInGroup(ctx context.Context, gid int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id FROM book_identities WHERE gid = ? ORDER BY created_at ASC, record_id ASC`, gid)
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

// GroupMembers returns every membership row of a GID group, oldest first.
func (s *Store) GroupMembers(ctx context.Context, gid int64) ([]*domain.GroupMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM book_identities WHERE gid = ? ORDER BY created_at ASC, record_id ASC`, gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.GroupMember
	for rows.Next() {
		m, err := scanGroupMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CanonicalRecord returns the record id of the single canonical member of a
// group, or store.ErrNotFound for an unknown gid.
//
// Reads must stay available even if a past bug corrupted the data: when the
// single-canonical invariant is violated this logs loudly and falls back to a
// deterministic tiebreak (oldest candidate) instead of failing.
func (s *Store) CanonicalRecord(ctx context.Context, gid int64) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id FROM book_identities
		WHERE gid = ? AND is_canonical = 1
		ORDER BY created_at ASC, record_id ASC`, gid)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var candidates []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		// No canonical member. Fall back to the oldest member of the group.
		var oldest int64
		err := s.db.QueryRowContext(ctx, `
			SELECT record_id FROM book_identities
			WHERE gid = ? ORDER BY created_at ASC, record_id ASC LIMIT 1`, gid).Scan(&oldest)
		if err == sql.ErrNoRows {
			return 0, store.ErrNotFound
		}
		if err != nil {
			return 0, err
		}
		if s.logger != nil {
			s.logger.Error("gid group has no canonical member, falling back to oldest",
				"gid", gid, "fallback_record", oldest)
		}
		return oldest, nil
	default:
		if s.logger != nil {
			s.logger.Error("gid group has multiple canonical members, using oldest",
				"gid", gid, "canonical_count", len(candidates))
		}
		return candidates[0], nil
	}
}

// countCanonicalTx counts canonical members of a group inside a transaction.
// Write paths use this to refuse compounding a detected corruption.
func countCanonicalTx(ctx context.Context, tx *sql.Tx, gid int64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM book_identities WHERE gid = ? AND is_canonical = 1`, gid).Scan(&n)
	return n, err
}

// SetCanonical makes recordID the canonical member of group gid, unsetting
// every other member. Refuses records that are not members of the group.
// Used for manual operator override after a merge went the wrong way.
func (s *Store) SetCanonical(ctx context.Context, gid, recordID int64) error {
	memberGID, err := s.GetGID(ctx, recordID)
	if err != nil {
		return err
	}
	if memberGID != gid {
		return store.ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE book_identities SET is_canonical = 0 WHERE gid = ? AND record_id != ?`,
		gid, recordID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE book_identities SET is_canonical = 1 WHERE record_id = ?`,
		recordID); err != nil {
		return err
	}

	return tx.Commit()
}
