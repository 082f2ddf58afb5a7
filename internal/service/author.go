package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/GRead-Development/Server-sub000/internal/events"
	"github.com/GRead-Development/Server-sub000/internal/id"
	"github.com/GRead-Development/Server-sub000/internal/store"
	"github.com/GRead-Development/Server-sub000/internal/util"
)

// slugAttempts bounds the retry loop when racing for a free slug.
const slugAttempts = 5

// AuthorService manages the author registry: rows, aliases, book links,
// and free-text resolution of legacy author strings.
type AuthorService struct {
	store   store.Store
	emitter events.Emitter
	logger  *slog.Logger
}

// NewAuthorService creates a new author service.
func NewAuthorService(st store.Store, emitter events.Emitter, logger *slog.Logger) *AuthorService {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &AuthorService{store: st, emitter: emitter, logger: logger}
}

// CreateAuthor mints a new author row with a unique slug derived from
// the display name. Name collisions get a numeric suffix; a lost race
// on insert re-derives and retries.
func (s *AuthorService) CreateAuthor(ctx context.Context, displayName, bio string) (*domain.Author, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, errors.Validation("author name is required")
	}

	base := util.Slugify(displayName)
	if base == "" {
		return nil, errors.Validationf("author name %q yields an empty slug", displayName)
	}

	var lastErr error
	for attempt := 0; attempt < slugAttempts; attempt++ {
		slug, err := s.nextFreeSlug(ctx, base)
		if err != nil {
			return nil, err
		}

		author := &domain.Author{
			ID:            id.MustGenerate("author"),
			DisplayName:   displayName,
			CanonicalName: util.CanonicalizeName(displayName),
			Slug:          slug,
			Bio:           bio,
		}
		err = s.store.CreateAuthor(ctx, author)
		if err == nil {
			s.emitter.Emit(events.EventAuthorCreated, events.AuthorCreatedData{
				AuthorID: author.ID,
				Name:     author.DisplayName,
				Slug:     author.Slug,
			})
			s.logger.Info("author created",
				"author_id", author.ID, "name", displayName, "slug", slug)
			return author, nil
		}
		if !stderrors.Is(err, store.ErrAlreadyExists) {
			return nil, err
		}
		// Someone claimed the slug between the probe and the insert.
		lastErr = err
	}
	return nil, errors.Wrapf(lastErr, errors.CodeInternal,
		"could not claim a slug for %q after %d attempts", displayName, slugAttempts)
}

// GetAuthor retrieves an author by id.
func (s *AuthorService) GetAuthor(ctx context.Context, authorID string) (*domain.Author, error) {
	a, err := s.store.GetAuthor(ctx, authorID)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("author %s not found", authorID)
	}
	return a, err
}

// FindAuthor resolves a free-form name or slug, including alias names
// left behind by merges.
func (s *AuthorService) FindAuthor(ctx context.Context, nameOrSlug string) (*domain.Author, error) {
	a, err := s.store.FindAuthor(ctx, strings.TrimSpace(nameOrSlug))
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NotFoundf("no author matches %q", nameOrSlug)
	}
	return a, err
}

// UpdateAuthor updates display fields. The slug is immutable here;
// renames that need a new slug go through aliases instead so existing
// references keep resolving.
func (s *AuthorService) UpdateAuthor(ctx context.Context, a *domain.Author) error {
	if strings.TrimSpace(a.DisplayName) == "" {
		return errors.Validation("author name is required")
	}
	err := s.store.UpdateAuthor(ctx, a)
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.NotFoundf("author %s not found", a.ID)
	}
	return err
}

// DeleteAuthor removes an author that has no book links left.
func (s *AuthorService) DeleteAuthor(ctx context.Context, authorID string) error {
	err := s.store.DeleteAuthor(ctx, authorID)
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.NotFoundf("author %s not found", authorID)
	}
	return err
}

// AddAlias attaches an alternate name to an author. The alias slug is
// deduped against the shared author/alias namespace like author slugs.
func (s *AuthorService) AddAlias(ctx context.Context, authorID, name, createdBy string) (*domain.AuthorAlias, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("alias name is required")
	}
	base := util.Slugify(name)
	if base == "" {
		return nil, errors.Validationf("alias %q yields an empty slug", name)
	}

	var lastErr error
	for attempt := 0; attempt < slugAttempts; attempt++ {
		slug, err := s.nextFreeSlug(ctx, base)
		if err != nil {
			return nil, err
		}

		alias := &domain.AuthorAlias{
			ID:        id.MustGenerate("alias"),
			AuthorID:  authorID,
			Name:      name,
			Slug:      slug,
			CreatedBy: createdBy,
		}
		err = s.store.CreateAlias(ctx, alias)
		if err == nil {
			s.logger.Info("alias added",
				"author_id", authorID, "name", name, "slug", slug)
			return alias, nil
		}
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFoundf("author %s not found", authorID)
		}
		if !stderrors.Is(err, store.ErrAlreadyExists) {
			return nil, err
		}
		lastErr = err
	}
	return nil, errors.Wrapf(lastErr, errors.CodeInternal,
		"could not claim a slug for alias %q after %d attempts", name, slugAttempts)
}

// AliasesForAuthor returns an author's aliases, oldest first.
func (s *AuthorService) AliasesForAuthor(ctx context.Context, authorID string) ([]*domain.AuthorAlias, error) {
	return s.store.AliasesForAuthor(ctx, authorID)
}

// LinkAuthor links a book to an author at a listing position.
func (s *AuthorService) LinkAuthor(ctx context.Context, bookID int64, authorID string, position int) error {
	err := s.store.LinkBookAuthor(ctx, bookID, authorID, position)
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.NotFoundf("author %s not found", authorID)
	}
	return err
}

// UnlinkAuthor removes a book/author link.
func (s *AuthorService) UnlinkAuthor(ctx context.Context, bookID int64, authorID string) error {
	err := s.store.UnlinkBookAuthor(ctx, bookID, authorID)
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.NotFoundf("book %d is not linked to author %s", bookID, authorID)
	}
	return err
}

// AuthorsForBook returns a book's author links in listing order.
func (s *AuthorService) AuthorsForBook(ctx context.Context, bookID int64) ([]*domain.BookAuthor, error) {
	return s.store.AuthorsForBook(ctx, bookID)
}

// ProcessFreeTextAuthors resolves a record's legacy author string into
// linked author rows. Names split on commas and semicolons; each name
// finds an existing author (by name, slug, or alias) or creates one,
// then links in listing order. The first-listed author gets order 1.
//
// The call is a one-shot migration per book: if the book already has
// any author links, the string is assumed processed and the existing
// links are returned unchanged.
func (s *AuthorService) ProcessFreeTextAuthors(ctx context.Context, bookID int64, authorText string) ([]*domain.BookAuthor, error) {
	existing, err := s.store.AuthorsForBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	names := SplitAuthorText(authorText)
	if len(names) == 0 {
		return nil, nil
	}

	for i, name := range names {
		author, err := s.store.FindAuthor(ctx, name)
		if stderrors.Is(err, store.ErrNotFound) {
			author, err = s.CreateAuthor(ctx, name, "")
		}
		if err != nil {
			return nil, fmt.Errorf("resolve author %q: %w", name, err)
		}
		if err := s.store.LinkBookAuthor(ctx, bookID, author.ID, i+1); err != nil {
			return nil, err
		}
	}

	s.logger.Info("free-text authors processed",
		"book_id", bookID, "count", len(names))
	return s.store.AuthorsForBook(ctx, bookID)
}

// MergeHistory returns merges touching an author, newest first.
func (s *AuthorService) MergeHistory(ctx context.Context, authorID string) ([]*domain.AuthorMerge, error) {
	return s.store.AuthorMergeHistory(ctx, authorID)
}

// nextFreeSlug probes base, base-2, base-3, ... against the shared
// author/alias namespace and returns the first free candidate. A race
// between probe and insert is resolved by the caller's retry loop.
func (s *AuthorService) nextFreeSlug(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		taken, err := s.store.SlugInUse(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// SplitAuthorText splits a legacy author string on commas and
// semicolons, trimming whitespace and dropping empty segments.
func SplitAuthorText(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';'
	})
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}
