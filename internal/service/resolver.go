package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/GRead-Development/Server-sub000/internal/store"
)

// ResolverService answers the read path: canonical views for any live
// record id and substring candidate lookups straight off the registry.
// It never mutates; corrupted groups degrade to a logged best guess
// instead of an error.
type ResolverService struct {
	store  store.Store
	logger *slog.Logger
}

// NewResolverService creates a new resolver service.
func NewResolverService(st store.Store, logger *slog.Logger) *ResolverService {
	return &ResolverService{store: st, logger: logger}
}

// CanonicalView resolves any record id, merged away or not, to its
// group's canonical view: surviving record, edition ledger, and the
// alias ids folded in by merges.
func (s *ResolverService) CanonicalView(ctx context.Context, recordID int64) (*domain.CanonicalView, error) {
	view, err := s.store.CanonicalView(ctx, recordID)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("record %d not found", recordID)
	}
	return view, err
}

// ResolveEdition picks the edition to display for a record's group for
// one user: preference, then primary, then oldest.
func (s *ResolverService) ResolveEdition(ctx context.Context, userID string, recordID int64) (*domain.Edition, error) {
	view, err := s.CanonicalView(ctx, recordID)
	if err != nil {
		return nil, err
	}
	e, err := s.store.ResolveForUser(ctx, userID, view.GID)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("group %d has no editions", view.GID)
	}
	return e, err
}

// SearchCandidates matches a substring against titles, author names,
// and alias names, substituting canonical records for merged-away hits.
// Empty queries return no candidates.
func (s *ResolverService) SearchCandidates(ctx context.Context, query string, limit int) ([]*domain.SearchMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return s.store.SearchCandidates(ctx, query, limit)
}
