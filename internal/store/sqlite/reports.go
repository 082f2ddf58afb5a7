package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/GRead-Development/Server-sub000/internal/domain"
)

const reportColumns = `id, record_id, reported_by, note, status, resolved_record_id, created_at, resolved_at`

// scanReport scans a sql.Row (or sql.Rows) into a domain.DuplicateReport.
func scanReport(scanner interface{ Scan(dest ...any) error }) (*domain.DuplicateReport, error) {
	var r domain.DuplicateReport

	var (
		note       sql.NullString
		status     string
		resolvedID sql.NullInt64
		createdAt  string
		resolvedAt sql.NullString
	)

	err := scanner.Scan(&r.ID, &r.RecordID, &r.ReportedBy, &note, &status, &resolvedID, &createdAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	r.Note = note.String
	r.Status = domain.DuplicateReportStatus(status)
	r.ResolvedRecordID = resolvedID.Int64
	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	r.ResolvedAt, err = parseNullableTime(resolvedAt)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// FileDuplicateReport records an operator claim that a record duplicates
// another. The report stays open until a merge of the record resolves it.
func (s *Store) FileDuplicateReport(ctx context.Context, r *domain.DuplicateReport) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = domain.ReportOpen
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO duplicate_reports (id, record_id, reported_by, note, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.RecordID, r.ReportedBy, nullString(r.Note), string(r.Status), formatTime(r.CreatedAt))
	return err
}

// OpenDuplicateReports returns the open reports against a record, oldest
// first.
func (s *Store) OpenDuplicateReports(ctx context.Context, recordID int64) ([]*domain.DuplicateReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM duplicate_reports
		 WHERE record_id = ? AND status = ?
		 ORDER BY created_at ASC, id ASC`, recordID, string(domain.ReportOpen))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.DuplicateReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// ReportsForRecord returns every report against a record regardless of
// status, newest first.
func (s *Store) ReportsForRecord(ctx context.Context, recordID int64) ([]*domain.DuplicateReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM duplicate_reports
		 WHERE record_id = ?
		 ORDER BY created_at DESC, id DESC`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.DuplicateReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
