package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/GRead-Development/Server-sub000/internal/id"
	"github.com/GRead-Development/Server-sub000/internal/store"
	"github.com/GRead-Development/Server-sub000/internal/util"
)

// MergeBooks collapses the FromID record's GID group into ToID's group.
//
// Every step runs inside one transaction: group membership moves (all members
// of the source group, not just the head record), editions re-point, the
// merged-away row is stamped with provenance, open duplicate reports resolve,
// and the optional metadata sync copies display fields onto the old record.
// Any failure, including the metadata-sync collaborator, rolls back the whole
// merge; a failed attempt leaves the source exactly as it was and the same
// call can be retried.
func (s *Store) MergeBooks(ctx context.Context, req store.BookMergeRequest) (*domain.BookMerge, error) {
	if req.FromID == req.ToID {
		return nil, errors.InvalidMerge("cannot merge a record into itself")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.TransactionFailed(err)
	}
	defer tx.Rollback()

	// Both ends must be known book records.
	for _, recordID := range []int64{req.FromID, req.ToID} {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM records WHERE id = ? AND record_type = ?`,
			recordID, string(domain.RecordTypeBook)).Scan(&one)
		if err == sql.ErrNoRows {
			return nil, errors.InvalidMergef("record %d is not a known book", recordID)
		}
		if err != nil {
			return nil, errors.TransactionFailed(err)
		}
	}

	fromGID, err := getOrCreateGIDTx(ctx, tx, req.FromID)
	if err != nil {
		return nil, errors.TransactionFailed(err)
	}
	toGID, err := getOrCreateGIDTx(ctx, tx, req.ToID)
	if err != nil {
		return nil, errors.TransactionFailed(err)
	}
	if fromGID == toGID {
		return nil, errors.InvalidMerge("records already belong to the same group")
	}

	// Both ends must be the canonical member of their group. The engine does
	// not walk merge chains: callers resolve to a live canonical id first.
	for _, check := range []struct {
		recordID int64
		role     string
	}{{req.FromID, "source"}, {req.ToID, "target"}} {
		var canonical int
		err := tx.QueryRowContext(ctx,
			`SELECT is_canonical FROM book_identities WHERE record_id = ?`,
			check.recordID).Scan(&canonical)
		if err != nil {
			return nil, errors.TransactionFailed(err)
		}
		if canonical == 0 {
			return nil, errors.InvalidMergef("%s record %d has already been merged away", check.role, check.recordID)
		}
	}

	// Write paths refuse to compound detected corruption.
	for _, gid := range []int64{fromGID, toGID} {
		n, err := countCanonicalTx(ctx, tx, gid)
		if err != nil {
			return nil, errors.TransactionFailed(err)
		}
		if n != 1 {
			return nil, errors.InconsistentStatef("group %d has %d canonical members", gid, n)
		}
	}

	// Backfill editions from legacy single-ISBN fields, so a merged group
	// always carries at least what the old field implied.
	if err := s.ensureMigratedTx(ctx, tx, req.FromID, fromGID); err != nil {
		return nil, errors.TransactionFailed(err)
	}
	if err := s.ensureMigratedTx(ctx, tx, req.ToID, toGID); err != nil {
		return nil, errors.TransactionFailed(err)
	}

	// Defensive: global ISBN uniqueness should make a cross-group collision
	// impossible; refuse rather than silently drop a row if one shows up.
	var conflicts int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM editions e1
		JOIN editions e2 ON e1.isbn = e2.isbn AND e2.gid = ?
		WHERE e1.gid = ?`, toGID, fromGID).Scan(&conflicts)
	if err != nil {
		return nil, errors.TransactionFailed(err)
	}
	if conflicts > 0 {
		return nil, errors.ISBNConflict(
			fmt.Sprintf("%d isbn(s) exist in both groups %d and %d", conflicts, fromGID, toGID))
	}

	now := time.Now()

	// Move every member of the source group, keyed on gid so no member can
	// be left behind pointing at a dead group.
	if _, err := tx.ExecContext(ctx,
		`UPDATE book_identities SET gid = ? WHERE gid = ?`, toGID, fromGID); err != nil {
		return nil, errors.TransactionFailed(err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE book_identities
		SET is_canonical = 0, merged_by = ?, merge_reason = ?, merged_at = ?
		WHERE record_id = ?`,
		req.Actor, nullString(req.Reason), formatTime(now), req.FromID); err != nil {
		return nil, errors.TransactionFailed(err)
	}

	// Re-point editions to the surviving group and record.
	if _, err := tx.ExecContext(ctx,
		`UPDATE editions SET gid = ? WHERE gid = ?`, toGID, fromGID); err != nil {
		return nil, errors.TransactionFailed(err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE editions SET record_id = ? WHERE record_id = ?`, req.ToID, req.FromID); err != nil {
		return nil, errors.TransactionFailed(err)
	}

	// Optional copy-on-merge compatibility step: external views addressing
	// the old id keep showing consistent data. A collaborator failure here
	// aborts the merge.
	if req.SyncMetadata {
		if err := s.metadataSyncer.SyncMetadata(ctx, tx, req.ToID, req.FromID); err != nil {
			return nil, errors.Wrap(err, errors.CodeTransactionFailed, "metadata sync failed")
		}
	}

	// Open duplicate reports against the merged-away record are now answered.
	if _, err := tx.ExecContext(ctx, `
		UPDATE duplicate_reports
		SET status = ?, resolved_record_id = ?, resolved_at = ?
		WHERE record_id = ? AND status = ?`,
		string(domain.ReportResolved), req.ToID, formatTime(now),
		req.FromID, string(domain.ReportOpen)); err != nil {
		return nil, errors.TransactionFailed(err)
	}

	merge := &domain.BookMerge{
		ID:        id.MustGenerate("merge"),
		FromID:    req.FromID,
		ToID:      req.ToID,
		GID:       toGID,
		MergedBy:  req.Actor,
		Reason:    req.Reason,
		CreatedAt: now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO book_merges (id, from_id, to_id, gid, merged_by, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		merge.ID, merge.FromID, merge.ToID, merge.GID,
		merge.MergedBy, nullString(merge.Reason), formatTime(merge.CreatedAt)); err != nil {
		return nil, errors.TransactionFailed(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.TransactionFailed(err)
	}

	if s.logger != nil {
		s.logger.Info("merged book records",
			"from_id", req.FromID, "to_id", req.ToID, "gid", toGID,
			"actor", req.Actor, "sync_metadata", req.SyncMetadata)
	}

	return merge, nil
}

// MergeAuthors collapses the FromID author into ToID.
//
// Book links re-point except where the book is already linked to the target;
// those duplicates are dropped so (book, author) uniqueness holds mid-merge.
// Aliases re-point, the merged-away display name becomes an alias of the
// survivor, provenance is appended, and the source row is deleted, all in
// one transaction.
func (s *Store) MergeAuthors(ctx context.Context, req store.AuthorMergeRequest) (*domain.AuthorMerge, error) {
	if req.FromID == req.ToID {
		return nil, errors.InvalidMerge("cannot merge an author into itself")
	}

	from, err := s.GetAuthor(ctx, req.FromID)
	if err == store.ErrNotFound {
		return nil, errors.NotFoundf("author %s not found", req.FromID)
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.GetAuthor(ctx, req.ToID); err == store.ErrNotFound {
		return nil, errors.NotFoundf("author %s not found", req.ToID)
	} else if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.TransactionFailed(err)
	}
	defer tx.Rollback()

	// Drop links that would collide with an existing target link, then
	// re-point the rest. The surviving link keeps the target's position.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM book_authors
		WHERE author_id = ?
		  AND book_id IN (SELECT book_id FROM book_authors WHERE author_id = ?)`,
		req.FromID, req.ToID); err != nil {
		return nil, errors.TransactionFailed(err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE book_authors SET author_id = ? WHERE author_id = ?`,
		req.ToID, req.FromID); err != nil {
		return nil, errors.TransactionFailed(err)
	}

	// Existing aliases follow the survivor. Slugs are globally unique and
	// unchanged, so no collision is possible here.
	if _, err := tx.ExecContext(ctx,
		`UPDATE author_aliases SET author_id = ? WHERE author_id = ?`,
		req.ToID, req.FromID); err != nil {
		return nil, errors.TransactionFailed(err)
	}

	// Delete the source row before minting the alias so its slug is freed
	// for reuse; the whole transaction is atomic, so the intermediate state
	// is unobservable.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM authors WHERE id = ?`, req.FromID); err != nil {
		return nil, errors.TransactionFailed(err)
	}

	// Old references by the merged-away name must still resolve.
	aliasSlug, err := nextFreeSlugTx(ctx, tx, util.Slugify(from.DisplayName))
	if err != nil {
		return nil, errors.TransactionFailed(err)
	}
	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO author_aliases (id, author_id, name, slug, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id.MustGenerate("alias"), req.ToID, from.DisplayName, aliasSlug,
		nullString(req.Actor), formatTime(now)); err != nil {
		return nil, errors.TransactionFailed(err)
	}

	merge := &domain.AuthorMerge{
		ID:        id.MustGenerate("merge"),
		FromID:    req.FromID,
		ToID:      req.ToID,
		FromName:  from.DisplayName,
		MergedBy:  req.Actor,
		Reason:    req.Reason,
		CreatedAt: now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO author_merges (id, from_id, to_id, from_name, merged_by, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		merge.ID, merge.FromID, merge.ToID, merge.FromName,
		merge.MergedBy, nullString(merge.Reason), formatTime(merge.CreatedAt)); err != nil {
		return nil, errors.TransactionFailed(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.TransactionFailed(err)
	}

	if s.logger != nil {
		s.logger.Info("merged authors",
			"from_id", req.FromID, "from_name", from.DisplayName,
			"to_id", req.ToID, "actor", req.Actor)
	}

	return merge, nil
}

// nextFreeSlugTx scans base, base-2, base-3, ... until an unused slug is
// found, inside the given transaction.
func nextFreeSlugTx(ctx context.Context, tx *sql.Tx, base string) (string, error) {
	if base == "" {
		base = "author"
	}
	candidate := base
	for i := 2; ; i++ {
		var one int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 WHERE EXISTS (SELECT 1 FROM authors WHERE slug = ?1)
			   OR EXISTS (SELECT 1 FROM author_aliases WHERE slug = ?1)`, candidate).Scan(&one)
		if err == sql.ErrNoRows {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// BookMergeHistory returns every merge that affected a record's current GID
// group, newest first. A record with no identity row has no history.
func (s *Store) BookMergeHistory(ctx context.Context, recordID int64) ([]*domain.BookMerge, error) {
	gid, err := s.GetGID(ctx, recordID)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Provenance rows carry the gid that survived at merge time, which a
	// later merge may itself have retired. Matching on current membership
	// of either endpoint catches the whole chain.
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT m.id, m.from_id, m.to_id, m.gid, m.merged_by, m.reason, m.created_at
		FROM book_merges m
		JOIN book_identities bi ON bi.record_id IN (m.from_id, m.to_id)
		WHERE bi.gid = ?
		ORDER BY m.created_at DESC, m.id DESC`, gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var merges []*domain.BookMerge
	for rows.Next() {
		var (
			m         domain.BookMerge
			reason    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.FromID, &m.ToID, &m.GID, &m.MergedBy, &reason, &createdAt); err != nil {
			return nil, err
		}
		m.Reason = reason.String
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		merges = append(merges, &m)
	}
	return merges, rows.Err()
}

// AuthorMergeHistory returns merges into an author, newest first.
func (s *Store) AuthorMergeHistory(ctx context.Context, authorID string) ([]*domain.AuthorMerge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_id, to_id, from_name, merged_by, reason, created_at
		FROM author_merges
		WHERE to_id = ? OR from_id = ?
		ORDER BY created_at DESC, id DESC`, authorID, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var merges []*domain.AuthorMerge
	for rows.Next() {
		var (
			m         domain.AuthorMerge
			reason    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.FromID, &m.ToID, &m.FromName, &m.MergedBy, &reason, &createdAt); err != nil {
			return nil, err
		}
		m.Reason = reason.String
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		merges = append(merges, &m)
	}
	return merges, rows.Err()
}
