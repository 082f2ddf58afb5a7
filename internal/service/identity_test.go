package service

import (
	"context"
	"testing"

	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/GRead-Development/Server-sub000/internal/events"
	"github.com/GRead-Development/Server-sub000/internal/store"
	"github.com/GRead-Development/Server-sub000/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdentityService(t *testing.T) (*IdentityService, *sqlite.Store, *captureEmitter) {
	t.Helper()
	st := newTestStore(t)
	emitter := &captureEmitter{}
	return NewIdentityService(st, emitter, testLogger()), st, emitter
}

func TestGetOrCreateGID_Service(t *testing.T) {
	svc, st, _ := newIdentityService(t)
	ctx := context.Background()

	seedBook(t, st, 7, "Hyperion")

	gid, err := svc.GetOrCreateGID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), gid)

	// Unknown records are rejected before an identity row can be minted.
	_, err = svc.GetOrCreateGID(ctx, 404)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestGroupMembers_UnknownGroup(t *testing.T) {
	svc, _, _ := newIdentityService(t)

	_, err := svc.GroupMembers(context.Background(), 999)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSetCanonical_Service(t *testing.T) {
	svc, st, emitter := newIdentityService(t)
	ctx := context.Background()

	seedBook(t, st, 1, "A")
	seedBook(t, st, 2, "B")
	_, err := st.MergeBooks(ctx, store.BookMergeRequest{FromID: 2, ToID: 1, Actor: "t"})
	require.NoError(t, err)

	require.NoError(t, svc.SetCanonical(ctx, 1, 2))
	assert.Equal(t, []events.EventType{events.EventCanonicalChanged}, emitter.captured())

	canonical, err := st.CanonicalRecord(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), canonical)

	// A record outside the group cannot become its canonical member.
	seedBook(t, st, 9, "Elsewhere")
	err = svc.SetCanonical(ctx, 1, 9)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.Len(t, emitter.captured(), 1, "failed reassignment emits nothing")
}

func TestFileDuplicateReport_Service(t *testing.T) {
	svc, st, _ := newIdentityService(t)
	ctx := context.Background()

	seedBook(t, st, 1, "A")

	report, err := svc.FileDuplicateReport(ctx, 1, "reader", "looks like a dupe")
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)

	open, err := svc.OpenReports(ctx, 1)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, report.ID, open[0].ID)

	_, err = svc.FileDuplicateReport(ctx, 1, "", "missing reporter")
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = svc.FileDuplicateReport(ctx, 404, "reader", "")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
