package service

import (
	"context"
	"testing"

	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/GRead-Development/Server-sub000/internal/events"
	"github.com/GRead-Development/Server-sub000/internal/store/sqlite"
	"github.com/GRead-Development/Server-sub000/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMergeService(t *testing.T) (*MergeService, *sqlite.Store, *captureEmitter) {
	t.Helper()
	st := newTestStore(t)
	emitter := &captureEmitter{}
	// No search index configured; the merge path must work without one.
	svc := NewMergeService(st, validation.New(), emitter, nil, testLogger())
	return svc, st, emitter
}

func TestMergeBooks_Service(t *testing.T) {
	svc, st, emitter := newMergeService(t)
	ctx := context.Background()

	seedBook(t, st, 1, "The Hobbit")
	seedBook(t, st, 2, "The Hobbit, or There and Back Again")

	merge, err := svc.MergeBooks(ctx, MergeBooksRequest{
		FromID: 2, ToID: 1, Actor: "librarian", Reason: "same work",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), merge.GID)
	assert.Equal(t, "librarian", merge.MergedBy)

	require.Equal(t, []events.EventType{events.EventBooksMerged}, emitter.captured())
	data, ok := emitter.data[0].(events.BooksMergedData)
	require.True(t, ok)
	assert.Equal(t, int64(2), data.FromID)
	assert.Equal(t, int64(1), data.ToID)

	gid, err := st.GetGID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gid)
}

func TestMergeBooks_ValidationRejectsBeforeStore(t *testing.T) {
	svc, st, emitter := newMergeService(t)
	ctx := context.Background()

	seedBook(t, st, 1, "A")

	cases := map[string]MergeBooksRequest{
		"missing actor": {FromID: 2, ToID: 1},
		"self merge":    {FromID: 1, ToID: 1, Actor: "t"},
		"zero from":     {ToID: 1, Actor: "t"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.MergeBooks(ctx, req)
			assert.ErrorIs(t, err, errors.ErrValidation)
		})
	}
	assert.Empty(t, emitter.captured(), "rejected requests emit nothing")
}

func TestMergeBooks_StoreFailureEmitsNothing(t *testing.T) {
	svc, st, emitter := newMergeService(t)
	ctx := context.Background()

	seedBook(t, st, 1, "A")

	_, err := svc.MergeBooks(ctx, MergeBooksRequest{FromID: 99, ToID: 1, Actor: "t"})
	assert.ErrorIs(t, err, errors.ErrInvalidMerge)
	assert.Empty(t, emitter.captured())
}

func TestMergeAuthors_Service(t *testing.T) {
	svc, st, emitter := newMergeService(t)
	ctx := context.Background()

	authors := NewAuthorService(st, nil, testLogger())
	from, err := authors.CreateAuthor(ctx, "J.R.R. Tolkein", "")
	require.NoError(t, err)
	to, err := authors.CreateAuthor(ctx, "J.R.R. Tolkien", "")
	require.NoError(t, err)

	merge, err := svc.MergeAuthors(ctx, MergeAuthorsRequest{
		FromID: from.ID, ToID: to.ID, Actor: "librarian", Reason: "misspelling",
	})
	require.NoError(t, err)
	assert.Equal(t, "J.R.R. Tolkein", merge.FromName)

	require.Equal(t, []events.EventType{events.EventAuthorsMerged}, emitter.captured())

	// The misspelled name still resolves, now to the survivor.
	found, err := authors.FindAuthor(ctx, "J.R.R. Tolkein")
	require.NoError(t, err)
	assert.Equal(t, to.ID, found.ID)
}

func TestMergeAuthors_Validation(t *testing.T) {
	svc, _, _ := newMergeService(t)
	ctx := context.Background()

	_, err := svc.MergeAuthors(ctx, MergeAuthorsRequest{FromID: "a", ToID: "a", Actor: "t"})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = svc.MergeAuthors(ctx, MergeAuthorsRequest{FromID: "a", ToID: "b"})
	assert.ErrorIs(t, err, errors.ErrValidation)
}
