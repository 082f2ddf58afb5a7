package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/GRead-Development/Server-sub000/internal/store"
	"github.com/GRead-Development/Server-sub000/internal/validation"
)

// EditionService manages the edition ledger and per-user preferences.
type EditionService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewEditionService creates a new edition service.
func NewEditionService(st store.Store, v *validation.Validator, logger *slog.Logger) *EditionService {
	return &EditionService{store: st, validator: v, logger: logger}
}

// AddEditionRequest carries the parameters for attaching an edition.
// The ISBN field is not format-checked: legacy records carry loose
// identifiers like "111-1" and the ledger keys on whatever the catalog
// holds. Uniqueness, not well-formedness, is the contract.
type AddEditionRequest struct {
	RecordID        int64  `json:"record_id" validate:"required,gt=0"`
	ISBN            string `json:"isbn" validate:"required,max=40"`
	Label           string `json:"label" validate:"max=200"`
	PublicationYear int    `json:"publication_year" validate:"omitempty,gte=0,lte=3000"`
	PageCount       int    `json:"page_count" validate:"omitempty,gte=0"`
	IsPrimary       bool   `json:"is_primary"`
}

// AddEdition attaches an ISBN to the record's group. ISBNs are stored
// in normalized form, digits only with a possible trailing X.
func (s *EditionService) AddEdition(ctx context.Context, req AddEditionRequest) (*domain.Edition, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !validation.IsISBN(req.ISBN) {
		s.logger.Warn("edition identifier is not a well-formed isbn, accepting anyway",
			"record_id", req.RecordID, "isbn", req.ISBN)
	}

	exists, err := s.store.RecordExists(ctx, req.RecordID, domain.RecordTypeBook)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NotFoundf("record %d not found", req.RecordID)
	}

	gid, err := s.store.GetOrCreateGID(ctx, req.RecordID)
	if err != nil {
		return nil, err
	}

	edition := &domain.Edition{
		ISBN:            NormalizeISBN(req.ISBN),
		GID:             gid,
		RecordID:        req.RecordID,
		Label:           req.Label,
		PublicationYear: req.PublicationYear,
		PageCount:       req.PageCount,
		IsPrimary:       req.IsPrimary,
	}
	if err := s.store.AddEdition(ctx, edition); err != nil {
		return nil, err
	}

	s.logger.Info("edition added",
		"isbn", edition.ISBN, "gid", gid, "record_id", req.RecordID, "primary", req.IsPrimary)
	return edition, nil
}

// GetEdition looks up an edition by ISBN.
func (s *EditionService) GetEdition(ctx context.Context, isbn string) (*domain.Edition, error) {
	e, err := s.store.GetEdition(ctx, NormalizeISBN(isbn))
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("edition %s not found", isbn)
	}
	return e, err
}

// RemoveEdition detaches an edition from its group. No primary
// reassignment happens; the group may be left with no primary.
func (s *EditionService) RemoveEdition(ctx context.Context, isbn string) error {
	err := s.store.RemoveEdition(ctx, NormalizeISBN(isbn))
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.NotFoundf("edition %s not found", isbn)
	}
	return err
}

// SetPrimary marks one edition as the group default, demoting any
// previous primary in the same step.
func (s *EditionService) SetPrimary(ctx context.Context, gid int64, isbn string) error {
	return s.store.SetPrimaryEdition(ctx, gid, NormalizeISBN(isbn))
}

// EditionsForGroup returns the group ledger, primary first.
func (s *EditionService) EditionsForGroup(ctx context.Context, gid int64) ([]*domain.Edition, error) {
	return s.store.EditionsForGroup(ctx, gid)
}

// EnsureMigrated backfills editions from a record's legacy single-ISBN
// field. Safe to call repeatedly.
func (s *EditionService) EnsureMigrated(ctx context.Context, recordID int64) error {
	exists, err := s.store.RecordExists(ctx, recordID, domain.RecordTypeBook)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NotFoundf("record %d not found", recordID)
	}
	return s.store.EnsureMigrated(ctx, recordID)
}

// SetPreference pins a user's preferred edition within a group.
func (s *EditionService) SetPreference(ctx context.Context, userID string, gid int64, isbn string) error {
	if userID == "" {
		return errors.Validation("user_id is required")
	}
	return s.store.SetEditionPreference(ctx, &domain.EditionPreference{
		UserID: userID,
		GID:    gid,
		ISBN:   NormalizeISBN(isbn),
	})
}

// ResolveForUser picks the edition a user should see for a group:
// their own preference first, then the group primary, then the oldest
// edition. Returns NotFound only when the group has no editions at all.
func (s *EditionService) ResolveForUser(ctx context.Context, userID string, gid int64) (*domain.Edition, error) {
	e, err := s.store.ResolveForUser(ctx, userID, gid)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("group %d has no editions", gid)
	}
	return e, err
}

// NormalizeISBN strips hyphens and spaces and upper-cases a trailing
// check digit, so equal ISBNs written differently collide in the ledger
// instead of slipping past the uniqueness constraint.
func NormalizeISBN(isbn string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, isbn)
	return strings.ToUpper(cleaned)
}
