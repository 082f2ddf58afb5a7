package sqlite

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/GRead-Development/Server-sub000/internal/store"
)

func createAuthor(t *testing.T, s *Store, id, name, slug string) *domain.Author {
	t.Helper()
	a := &domain.Author{ID: id, DisplayName: name, CanonicalName: name, Slug: slug}
	if err := s.CreateAuthor(context.Background(), a); err != nil {
		t.Fatalf("CreateAuthor(%s): %v", id, err)
	}
	return a
}

func TestCreateAuthor_SlugCollision(t *testing.T) {
	s := newTestStore(t)

	createAuthor(t, s, "author_1", "Iain Banks", "iain-banks")
	err := s.CreateAuthor(context.Background(), &domain.Author{
		ID: "author_2", DisplayName: "Iain M. Banks", Slug: "iain-banks",
	})
	if !stderrors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestFindAuthor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createAuthor(t, s, "author_1", "Ursula K. Le Guin", "ursula-k-le-guin")

	// Exact display name.
	got, err := s.FindAuthor(ctx, "Ursula K. Le Guin")
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("by name: got %s", got.ID)
	}

	// Derived slug of a differently punctuated spelling.
	got, err = s.FindAuthor(ctx, "ursula k le guin")
	if err != nil {
		t.Fatalf("by derived slug: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("by derived slug: got %s", got.ID)
	}

	// Alias name resolves to the owning author.
	if err := s.CreateAlias(ctx, &domain.AuthorAlias{
		ID: "alias_1", AuthorID: a.ID, Name: "U.K. Le Guin", Slug: "u-k-le-guin",
	}); err != nil {
		t.Fatalf("CreateAlias: %v", err)
	}
	got, err = s.FindAuthor(ctx, "U.K. Le Guin")
	if err != nil {
		t.Fatalf("by alias: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("by alias: got %s", got.ID)
	}

	if _, err := s.FindAuthor(ctx, "Nobody At All"); !stderrors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown name: expected ErrNotFound, got %v", err)
	}
}

func TestSlugInUse_SharedNamespace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createAuthor(t, s, "author_1", "Gene Wolfe", "gene-wolfe")
	if err := s.CreateAlias(ctx, &domain.AuthorAlias{
		ID: "alias_1", AuthorID: a.ID, Name: "G. Wolfe", Slug: "g-wolfe",
	}); err != nil {
		t.Fatal(err)
	}

	for slug, want := range map[string]bool{
		"gene-wolfe": true,
		"g-wolfe":    true,
		"free-slug":  false,
	} {
		got, err := s.SlugInUse(ctx, slug)
		if err != nil {
			t.Fatalf("SlugInUse(%s): %v", slug, err)
		}
		if got != want {
			t.Errorf("SlugInUse(%s): got %v, want %v", slug, got, want)
		}
	}
}

func TestDeleteAuthor_WithBooks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createAuthor(t, s, "author_1", "Frank Herbert", "frank-herbert")
	createBook(t, s, 1, "Dune")
	if err := s.LinkBookAuthor(ctx, 1, a.ID, 0); err != nil {
		t.Fatal(err)
	}

	err := s.DeleteAuthor(ctx, a.ID)
	if !stderrors.Is(err, errors.ErrAuthorHasBooks) {
		t.Fatalf("expected ErrAuthorHasBooks, got %v", err)
	}

	// Unlink first, then deletion succeeds and takes the aliases along.
	if err := s.CreateAlias(ctx, &domain.AuthorAlias{
		ID: "alias_1", AuthorID: a.ID, Name: "F. Herbert", Slug: "f-herbert",
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.UnlinkBookAuthor(ctx, 1, a.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteAuthor(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAuthor: %v", err)
	}

	if _, err := s.GetAuthor(ctx, a.ID); !stderrors.Is(err, store.ErrNotFound) {
		t.Fatalf("author should be gone, got %v", err)
	}
	inUse, err := s.SlugInUse(ctx, "f-herbert")
	if err != nil {
		t.Fatal(err)
	}
	if inUse {
		t.Error("alias slug should be freed with the author")
	}
}

func TestCreateAlias_MissingAuthor(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateAlias(context.Background(), &domain.AuthorAlias{
		ID: "alias_1", AuthorID: "author_missing", Name: "Ghost", Slug: "ghost",
	})
	if !stderrors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLinkBookAuthor_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createAuthor(t, s, "author_1", "Anne McCaffrey", "anne-mccaffrey")
	createBook(t, s, 1, "Dragonflight")

	if err := s.LinkBookAuthor(ctx, 1, a.ID, 0); err != nil {
		t.Fatal(err)
	}
	// Relinking moves the position instead of duplicating the row.
	if err := s.LinkBookAuthor(ctx, 1, a.ID, 3); err != nil {
		t.Fatal(err)
	}

	links, err := s.AuthorsForBook(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Fatalf("expected one link, got %d", len(links))
	}
	if links[0].Position != 3 {
		t.Errorf("position: got %d, want 3", links[0].Position)
	}
}

func TestLinkBookAuthor_MissingAuthor(t *testing.T) {
	s := newTestStore(t)

	createBook(t, s, 1, "A")
	err := s.LinkBookAuthor(context.Background(), 1, "author_missing", 0)
	if !stderrors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
