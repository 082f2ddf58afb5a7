package service

import (
	"context"
	"log/slog"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/events"
	"github.com/GRead-Development/Server-sub000/internal/store"
	"github.com/GRead-Development/Server-sub000/internal/validation"
)

// MergeService drives book and author merges: store transaction first,
// then post-commit fanout (events, search reindex). Nothing after the
// commit can fail the merge; reindex problems are logged and retried by
// the next full reindex.
type MergeService struct {
	store     store.Store
	validator *validation.Validator
	emitter   events.Emitter
	search    *SearchService
	logger    *slog.Logger
}

// NewMergeService creates a new merge service. search may be nil when
// no index is configured.
func NewMergeService(st store.Store, v *validation.Validator, emitter events.Emitter, search *SearchService, logger *slog.Logger) *MergeService {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &MergeService{
		store:     st,
		validator: v,
		emitter:   emitter,
		search:    search,
		logger:    logger,
	}
}

// MergeBooksRequest carries the parameters of a book merge.
type MergeBooksRequest struct {
	FromID       int64  `json:"from_id" validate:"required,gt=0"`
	ToID         int64  `json:"to_id" validate:"required,gt=0,nefield=FromID"`
	SyncMetadata bool   `json:"sync_metadata"`
	Actor        string `json:"actor" validate:"required"`
	Reason       string `json:"reason" validate:"max=500"`
}

// MergeBooks collapses FromID's group into ToID's group in a single
// store transaction, then publishes the merge and refreshes the index.
func (s *MergeService) MergeBooks(ctx context.Context, req MergeBooksRequest) (*domain.BookMerge, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	merge, err := s.store.MergeBooks(ctx, store.BookMergeRequest{
		FromID:       req.FromID,
		ToID:         req.ToID,
		SyncMetadata: req.SyncMetadata,
		Actor:        req.Actor,
		Reason:       req.Reason,
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(events.EventBooksMerged, events.BooksMergedData{
		FromID: merge.FromID,
		ToID:   merge.ToID,
		GID:    merge.GID,
		Actor:  merge.MergedBy,
	})

	if s.search != nil {
		if err := s.search.RemoveBook(merge.FromID); err != nil {
			s.logger.Warn("failed to drop merged book from index",
				"record_id", merge.FromID, "error", err)
		}
		if err := s.search.IndexBook(ctx, merge.ToID); err != nil {
			s.logger.Warn("failed to reindex canonical book",
				"record_id", merge.ToID, "error", err)
		}
	}

	return merge, nil
}

// MergeAuthorsRequest carries the parameters of an author merge.
type MergeAuthorsRequest struct {
	FromID string `json:"from_id" validate:"required"`
	ToID   string `json:"to_id" validate:"required,nefield=FromID"`
	Actor  string `json:"actor" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// MergeAuthors collapses FromID into ToID, leaving the merged-away
// display name behind as an alias of the survivor.
func (s *MergeService) MergeAuthors(ctx context.Context, req MergeAuthorsRequest) (*domain.AuthorMerge, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	merge, err := s.store.MergeAuthors(ctx, store.AuthorMergeRequest{
		FromID: req.FromID,
		ToID:   req.ToID,
		Actor:  req.Actor,
		Reason: req.Reason,
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(events.EventAuthorsMerged, events.AuthorsMergedData{
		FromID:   merge.FromID,
		ToID:     merge.ToID,
		FromName: merge.FromName,
		Actor:    merge.MergedBy,
	})

	if s.search != nil {
		if err := s.search.RemoveAuthor(merge.FromID); err != nil {
			s.logger.Warn("failed to drop merged author from index",
				"author_id", merge.FromID, "error", err)
		}
		if err := s.search.IndexAuthor(ctx, merge.ToID); err != nil {
			s.logger.Warn("failed to reindex surviving author",
				"author_id", merge.ToID, "error", err)
		}
	}

	return merge, nil
}
