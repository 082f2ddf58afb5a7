package service

import (
	"context"
	"testing"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/GRead-Development/Server-sub000/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverCanonicalView(t *testing.T) {
	st := newTestStore(t)
	svc := NewResolverService(st, testLogger())
	ctx := context.Background()

	seedBook(t, st, 1, "A")
	seedBook(t, st, 2, "B")
	_, err := st.MergeBooks(ctx, store.BookMergeRequest{FromID: 2, ToID: 1, Actor: "t"})
	require.NoError(t, err)

	// The merged-away id resolves to the survivor.
	view, err := svc.CanonicalView(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.RecordID)
	assert.Equal(t, []int64{2}, view.Aliases)

	_, err = svc.CanonicalView(ctx, 404)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestResolveEdition(t *testing.T) {
	st := newTestStore(t)
	svc := NewResolverService(st, testLogger())
	ctx := context.Background()

	seedBook(t, st, 1, "A")
	seedBook(t, st, 2, "B")
	gid2, err := st.GetOrCreateGID(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, st.AddEdition(ctx, &domain.Edition{
		ISBN: "9780000000002", GID: gid2, RecordID: 2,
	}))
	_, err = st.MergeBooks(ctx, store.BookMergeRequest{FromID: 2, ToID: 1, Actor: "t"})
	require.NoError(t, err)

	// Resolution through a merged-away id lands on the surviving group's
	// edition ledger.
	e, err := svc.ResolveEdition(ctx, "reader", 2)
	require.NoError(t, err)
	assert.Equal(t, "9780000000002", e.ISBN)

	seedBook(t, st, 3, "Editionless")
	_, err = svc.ResolveEdition(ctx, "reader", 3)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestResolverSearchCandidates(t *testing.T) {
	st := newTestStore(t)
	svc := NewResolverService(st, testLogger())
	ctx := context.Background()

	seedBook(t, st, 1, "The Left Hand of Darkness")

	matches, err := svc.SearchCandidates(ctx, "Darkness", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(1), matches[0].BookID)

	// Blank queries short-circuit without touching the store.
	matches, err = svc.SearchCandidates(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
