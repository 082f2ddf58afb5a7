// Package service orchestrates identity, edition, author, and merge
// operations on top of the store, translating store sentinels into
// coded domain errors and publishing events after successful writes.
package service

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/GRead-Development/Server-sub000/internal/events"
	"github.com/GRead-Development/Server-sub000/internal/id"
	"github.com/GRead-Development/Server-sub000/internal/store"
)

// IdentityService manages GID groups and duplicate reports.
type IdentityService struct {
	store   store.Store
	emitter events.Emitter
	logger  *slog.Logger
}

// NewIdentityService creates a new identity service.
func NewIdentityService(st store.Store, emitter events.Emitter, logger *slog.Logger) *IdentityService {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &IdentityService{store: st, emitter: emitter, logger: logger}
}

// GetOrCreateGID returns the record's group id, minting a singleton
// group on first contact. Idempotent; concurrent callers converge on
// one row.
func (s *IdentityService) GetOrCreateGID(ctx context.Context, recordID int64) (int64, error) {
	exists, err := s.store.RecordExists(ctx, recordID, domain.RecordTypeBook)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, errors.NotFoundf("record %d not found", recordID)
	}
	return s.store.GetOrCreateGID(ctx, recordID)
}

// GroupMembers returns the full membership of a group.
func (s *IdentityService) GroupMembers(ctx context.Context, gid int64) ([]*domain.GroupMember, error) {
	members, err := s.store.GroupMembers(ctx, gid)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, errors.NotFoundf("group %d not found", gid)
	}
	return members, nil
}

// SetCanonical manually reassigns a group's canonical member, for
// operator corrections after a bad merge direction.
func (s *IdentityService) SetCanonical(ctx context.Context, gid, recordID int64) error {
	if err := s.store.SetCanonical(ctx, gid, recordID); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return errors.NotFoundf("record %d is not a member of group %d", recordID, gid)
		}
		return err
	}

	s.emitter.Emit(events.EventCanonicalChanged, events.CanonicalChangedData{
		GID:      gid,
		RecordID: recordID,
	})
	s.logger.Info("canonical member reassigned", "gid", gid, "record_id", recordID)
	return nil
}

// FileDuplicateReport records a claim that recordID duplicates another
// record. The report stays open until a merge resolves it.
func (s *IdentityService) FileDuplicateReport(ctx context.Context, recordID int64, reportedBy, note string) (*domain.DuplicateReport, error) {
	if reportedBy == "" {
		return nil, errors.Validation("reported_by is required")
	}

	exists, err := s.store.RecordExists(ctx, recordID, domain.RecordTypeBook)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NotFoundf("record %d not found", recordID)
	}

	report := &domain.DuplicateReport{
		ID:         id.MustGenerate("report"),
		RecordID:   recordID,
		ReportedBy: reportedBy,
		Note:       note,
		Status:     domain.ReportOpen,
	}
	if err := s.store.FileDuplicateReport(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info("duplicate report filed",
		"report_id", report.ID, "record_id", recordID, "reported_by", reportedBy)
	return report, nil
}

// OpenReports returns the open duplicate reports against a record.
func (s *IdentityService) OpenReports(ctx context.Context, recordID int64) ([]*domain.DuplicateReport, error) {
	return s.store.OpenDuplicateReports(ctx, recordID)
}

// ReportsForRecord returns all reports against a record, any status.
func (s *IdentityService) ReportsForRecord(ctx context.Context, recordID int64) ([]*domain.DuplicateReport, error) {
	return s.store.ReportsForRecord(ctx, recordID)
}

// MergeHistory returns the merges that shaped a record's current group.
func (s *IdentityService) MergeHistory(ctx context.Context, recordID int64) ([]*domain.BookMerge, error) {
	return s.store.BookMergeHistory(ctx, recordID)
}
