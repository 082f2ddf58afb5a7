package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/GRead-Development/Server-sub000/internal/domain"
	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/GRead-Development/Server-sub000/internal/store"
)

func mergeBooks(t *testing.T, s *Store, from, to int64) *domain.BookMerge {
	t.Helper()
	m, err := s.MergeBooks(context.Background(), store.BookMergeRequest{
		FromID: from, ToID: to, Actor: "tester",
	})
	if err != nil {
		t.Fatalf("MergeBooks(%d -> %d): %v", from, to, err)
	}
	return m
}

func TestMergeBooks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createBook(t, s, 1, "The Hobbit")
	createBook(t, s, 2, "The Hobbit, or There and Back Again")
	gid1, _ := s.GetOrCreateGID(ctx, 1)
	addEdition(t, s, gid1, 1, "9780000000001", true)
	gid2, _ := s.GetOrCreateGID(ctx, 2)
	addEdition(t, s, gid2, 2, "9780000000002", false)

	m := mergeBooks(t, s, 2, 1)
	if m.GID != gid1 {
		t.Errorf("merge gid: got %d, want %d", m.GID, gid1)
	}

	// The source record now lives in the survivor's group, non-canonical,
	// stamped with provenance.
	member, err := s.GetGroupMember(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if member.GID != gid1 {
		t.Errorf("source gid: got %d, want %d", member.GID, gid1)
	}
	if member.IsCanonical {
		t.Error("source should no longer be canonical")
	}
	if member.MergedBy != "tester" || member.MergedAt == nil {
		t.Errorf("provenance not stamped: %+v", member)
	}

	// Both editions now belong to the surviving group and record.
	editions, err := s.EditionsForGroup(ctx, gid1)
	if err != nil {
		t.Fatal(err)
	}
	if len(editions) != 2 {
		t.Fatalf("expected 2 editions, got %d", len(editions))
	}
	for _, e := range editions {
		if e.RecordID != 1 {
			t.Errorf("edition %s record_id: got %d, want 1", e.ISBN, e.RecordID)
		}
	}

	canonical, err := s.CanonicalRecord(ctx, gid1)
	if err != nil {
		t.Fatal(err)
	}
	if canonical != 1 {
		t.Errorf("canonical: got %d, want 1", canonical)
	}
}

func TestMergeBooks_WholeGroupFollows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createBook(t, s, 1, "A")
	createBook(t, s, 2, "B")
	createBook(t, s, 3, "C")

	// Build a two-member source group, then merge its canonical head away.
	mergeBooks(t, s, 2, 1)
	mergeBooks(t, s, 1, 3)

	// Record 2 never appeared in the second request but must follow its group.
	for _, recordID := range []int64{1, 2, 3} {
		gid, err := s.GetGID(ctx, recordID)
		if err != nil {
			t.Fatalf("GetGID(%d): %v", recordID, err)
		}
		if gid != 3 {
			t.Errorf("record %d gid: got %d, want 3", recordID, gid)
		}
	}
}

func TestMergeBooks_InvalidRequests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createBook(t, s, 1, "A")
	createBook(t, s, 2, "B")
	mergeBooks(t, s, 2, 1)

	cases := []struct {
		name string
		req  store.BookMergeRequest
		want error
	}{
		{"self merge", store.BookMergeRequest{FromID: 1, ToID: 1, Actor: "t"}, errors.ErrInvalidMerge},
		{"unknown record", store.BookMergeRequest{FromID: 99, ToID: 1, Actor: "t"}, errors.ErrInvalidMerge},
		{"same group", store.BookMergeRequest{FromID: 2, ToID: 1, Actor: "t"}, errors.ErrInvalidMerge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.MergeBooks(ctx, tc.req)
			if !stderrors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMergeBooks_NonCanonicalEndpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createBook(t, s, 1, "A")
	createBook(t, s, 2, "B")
	createBook(t, s, 3, "C")
	mergeBooks(t, s, 2, 1)

	// Record 2 was merged away; it cannot be either end of a new merge.
	_, err := s.MergeBooks(ctx, store.BookMergeRequest{FromID: 2, ToID: 3, Actor: "t"})
	if !stderrors.Is(err, errors.ErrInvalidMerge) {
		t.Fatalf("merged-away source: got %v", err)
	}
	_, err = s.MergeBooks(ctx, store.BookMergeRequest{FromID: 3, ToID: 2, Actor: "t"})
	if !stderrors.Is(err, errors.ErrInvalidMerge) {
		t.Fatalf("merged-away target: got %v", err)
	}
}

func TestMergeBooks_CorruptedGroupRefused(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createBook(t, s, 1, "A")
	createBook(t, s, 2, "B")
	if _, err := s.GetOrCreateGID(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetOrCreateGID(ctx, 2); err != nil {
		t.Fatal(err)
	}

	// Inject a second canonical member into group 1.
	if _, err := s.db.Exec(
		`INSERT INTO book_identities (record_id, gid, is_canonical, created_at) VALUES (77, 1, 1, ?)`,
		formatTime(time.Now())); err != nil {
		t.Fatal(err)
	}

	_, err := s.MergeBooks(ctx, store.BookMergeRequest{FromID: 2, ToID: 1, Actor: "t"})
	if !stderrors.Is(err, errors.ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}
}

func TestMergeBooks_LegacyISBNBackfilledDuringMerge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := makeTestBook(1, "Legacy")
	r.ISBNText = "9783333333333"
	if err := s.CreateRecord(ctx, r); err != nil {
		t.Fatal(err)
	}
	createBook(t, s, 2, "Modern")

	mergeBooks(t, s, 1, 2)

	gid, _ := s.GetGID(ctx, 2)
	editions, err := s.EditionsForGroup(ctx, gid)
	if err != nil {
		t.Fatal(err)
	}
	if len(editions) != 1 || editions[0].ISBN != "9783333333333" {
		t.Fatalf("legacy edition not carried through merge: %+v", editions)
	}
	if editions[0].RecordID != 2 {
		t.Errorf("edition should re-point to the survivor, got record %d", editions[0].RecordID)
	}
}

func TestMergeBooks_MetadataSyncFailureRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createBook(t, s, 1, "A")
	createBook(t, s, 2, "B")
	gid2, _ := s.GetOrCreateGID(ctx, 2)
	addEdition(t, s, gid2, 2, "9780000000002", false)

	s.SetMetadataSyncer(store.MetadataSyncerFunc(
		func(ctx context.Context, tx *sql.Tx, canonicalID, mergedID int64) error {
			return stderrors.New("content store unavailable")
		}))

	_, err := s.MergeBooks(ctx, store.BookMergeRequest{
		FromID: 2, ToID: 1, SyncMetadata: true, Actor: "t",
	})
	if !stderrors.Is(err, errors.ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}

	// Nothing moved: record 2 is still its own canonical group with its edition.
	gid, err := s.GetGID(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if gid != 2 {
		t.Errorf("source gid after rollback: got %d, want 2", gid)
	}
	editions, _ := s.EditionsForGroup(ctx, 2)
	if len(editions) != 1 || editions[0].RecordID != 2 {
		t.Errorf("editions after rollback: %+v", editions)
	}
	history, err := s.BookMergeHistory(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("no history should survive a rollback, got %d rows", len(history))
	}

	// The same request succeeds once the collaborator recovers.
	s.SetMetadataSyncer(store.MetadataSyncerFunc(s.copyRecordMetadata))
	mergeBooks(t, s, 2, 1)
}

func TestMergeBooks_MetadataSyncCopiesDisplayFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	winner := makeTestBook(1, "Canonical Title")
	winner.AuthorText = "Canonical Author"
	winner.Description = "Canonical description."
	if err := s.CreateRecord(ctx, winner); err != nil {
		t.Fatal(err)
	}
	createBook(t, s, 2, "Old Title")

	if _, err := s.MergeBooks(ctx, store.BookMergeRequest{
		FromID: 2, ToID: 1, SyncMetadata: true, Actor: "t",
	}); err != nil {
		t.Fatal(err)
	}

	old, err := s.GetRecord(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if old.Title != "Canonical Title" || old.AuthorText != "Canonical Author" {
		t.Errorf("display fields not synced: %+v", old)
	}
}

func TestMergeBooks_ResolvesOpenReports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createBook(t, s, 1, "A")
	createBook(t, s, 2, "B")
	if err := s.FileDuplicateReport(ctx, &domain.DuplicateReport{
		ID: "report_1", RecordID: 2, ReportedBy: "reader", Note: "same book as A",
	}); err != nil {
		t.Fatal(err)
	}

	mergeBooks(t, s, 2, 1)

	open, err := s.OpenDuplicateReports(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open reports, got %d", len(open))
	}

	all, err := s.ReportsForRecord(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one report, got %d", len(all))
	}
	r := all[0]
	if r.Status != domain.ReportResolved || r.ResolvedRecordID != 1 || r.ResolvedAt == nil {
		t.Errorf("report not resolved by merge: %+v", r)
	}
}

func TestBookMergeHistory_Chain(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createBook(t, s, 1, "A")
	createBook(t, s, 2, "B")
	createBook(t, s, 3, "C")
	mergeBooks(t, s, 1, 2)
	mergeBooks(t, s, 2, 3)

	// Record 1's first merge targeted a gid that was itself later retired.
	// History must still surface both steps of the chain, newest first.
	history, err := s.BookMergeHistory(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 merges, got %d", len(history))
	}
	if history[0].FromID != 2 || history[0].ToID != 3 {
		t.Errorf("newest merge: got %d -> %d", history[0].FromID, history[0].ToID)
	}
	if history[1].FromID != 1 || history[1].ToID != 2 {
		t.Errorf("oldest merge: got %d -> %d", history[1].FromID, history[1].ToID)
	}

	// A record that never touched identities has no history at all.
	createBook(t, s, 9, "Untouched")
	history, err = s.BookMergeHistory(ctx, 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d", len(history))
	}
}

func TestMergeAuthors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	from := createAuthor(t, s, "author_from", "J.R.R. Tolkein", "j-r-r-tolkein")
	to := createAuthor(t, s, "author_to", "J.R.R. Tolkien", "j-r-r-tolkien")

	createBook(t, s, 1, "The Hobbit")
	createBook(t, s, 2, "The Silmarillion")
	// Book 1 is linked to both; the duplicate link must be dropped, not moved.
	if err := s.LinkBookAuthor(ctx, 1, from.ID, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.LinkBookAuthor(ctx, 1, to.ID, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.LinkBookAuthor(ctx, 2, from.ID, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAlias(ctx, &domain.AuthorAlias{
		ID: "alias_1", AuthorID: from.ID, Name: "Tolkein, J.R.R.", Slug: "tolkein-j-r-r",
	}); err != nil {
		t.Fatal(err)
	}

	m, err := s.MergeAuthors(ctx, store.AuthorMergeRequest{
		FromID: from.ID, ToID: to.ID, Actor: "librarian", Reason: "misspelling",
	})
	if err != nil {
		t.Fatalf("MergeAuthors: %v", err)
	}
	if m.FromName != "J.R.R. Tolkein" {
		t.Errorf("FromName: got %q", m.FromName)
	}

	// The source row is gone.
	if _, err := s.GetAuthor(ctx, from.ID); !stderrors.Is(err, store.ErrNotFound) {
		t.Fatalf("source author should be deleted, got %v", err)
	}

	// Links: book 1 keeps a single link, book 2's link re-pointed.
	books, err := s.BooksForAuthor(ctx, to.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 || books[0] != 1 || books[1] != 2 {
		t.Errorf("survivor books: got %v", books)
	}
	links, _ := s.AuthorsForBook(ctx, 1)
	if len(links) != 1 {
		t.Errorf("book 1 should have exactly one author link, got %d", len(links))
	}

	// Aliases follow, and the old display name resolves to the survivor.
	aliases, err := s.AliasesForAuthor(ctx, to.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(aliases) != 2 {
		t.Fatalf("expected 2 aliases, got %d", len(aliases))
	}
	got, err := s.FindAuthor(ctx, "J.R.R. Tolkein")
	if err != nil {
		t.Fatalf("old name should still resolve: %v", err)
	}
	if got.ID != to.ID {
		t.Errorf("old name resolves to %s, want %s", got.ID, to.ID)
	}

	history, err := s.AuthorMergeHistory(ctx, to.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].MergedBy != "librarian" {
		t.Errorf("merge history: %+v", history)
	}
}

func TestMergeAuthors_FreedSlugReusedForAlias(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	from := createAuthor(t, s, "author_from", "Robin Hobb", "robin-hobb")
	to := createAuthor(t, s, "author_to", "Megan Lindholm", "megan-lindholm")

	if _, err := s.MergeAuthors(ctx, store.AuthorMergeRequest{
		FromID: from.ID, ToID: to.ID, Actor: "t",
	}); err != nil {
		t.Fatal(err)
	}

	// The deleted author freed its slug inside the transaction, so the minted
	// alias takes the base form with no suffix.
	aliases, err := s.AliasesForAuthor(ctx, to.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(aliases) != 1 {
		t.Fatalf("expected one alias, got %d", len(aliases))
	}
	if aliases[0].Slug != "robin-hobb" {
		t.Errorf("alias slug: got %q, want %q", aliases[0].Slug, "robin-hobb")
	}
}

func TestMergeAuthors_InvalidRequests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createAuthor(t, s, "author_1", "Someone", "someone")

	_, err := s.MergeAuthors(ctx, store.AuthorMergeRequest{FromID: a.ID, ToID: a.ID, Actor: "t"})
	if !stderrors.Is(err, errors.ErrInvalidMerge) {
		t.Fatalf("self merge: got %v", err)
	}

	_, err = s.MergeAuthors(ctx, store.AuthorMergeRequest{FromID: "author_missing", ToID: a.ID, Actor: "t"})
	if !stderrors.Is(err, errors.ErrNotFound) {
		t.Fatalf("missing source: got %v", err)
	}
	_, err = s.MergeAuthors(ctx, store.AuthorMergeRequest{FromID: a.ID, ToID: "author_missing", Actor: "t"})
	if !stderrors.Is(err, errors.ErrNotFound) {
		t.Fatalf("missing target: got %v", err)
	}
}

// TestSingleCanonicalInvariant_RandomOps drives a random mix of group
// minting, canonical reassignment, and merges, and checks after every
// step that each group still has exactly one canonical member. The seed
// is fixed so a failure replays deterministically.
func TestSingleCanonicalInvariant_RandomOps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const records = 8
	for i := int64(1); i <= records; i++ {
		createBook(t, s, i, fmt.Sprintf("Book %d", i))
	}

	rng := rand.New(rand.NewSource(42))

	checkGroups := func(step int) {
		t.Helper()
		seen := make(map[int64]bool)
		for id := int64(1); id <= records; id++ {
			gid, err := s.GetGID(ctx, id)
			if stderrors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				t.Fatalf("step %d: GetGID(%d): %v", step, id, err)
			}
			if seen[gid] {
				continue
			}
			seen[gid] = true

			members, err := s.GroupMembers(ctx, gid)
			if err != nil {
				t.Fatalf("step %d: GroupMembers(%d): %v", step, gid, err)
			}
			canonical := 0
			for _, m := range members {
				if m.GID != gid {
					t.Fatalf("step %d: member %d reports gid %d in group %d", step, m.RecordID, m.GID, gid)
				}
				if m.IsCanonical {
					canonical++
				}
			}
			if canonical != 1 {
				t.Fatalf("step %d: group %d has %d canonical members", step, gid, canonical)
			}
		}
	}

	for step := 0; step < 200; step++ {
		a := rng.Int63n(records) + 1
		b := rng.Int63n(records) + 1

		switch rng.Intn(3) {
		case 0:
			if _, err := s.GetOrCreateGID(ctx, a); err != nil {
				t.Fatalf("step %d: GetOrCreateGID(%d): %v", step, a, err)
			}
		case 1:
			gid, err := s.GetGID(ctx, a)
			if stderrors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				t.Fatalf("step %d: GetGID(%d): %v", step, a, err)
			}
			members, err := s.GroupMembers(ctx, gid)
			if err != nil {
				t.Fatalf("step %d: GroupMembers(%d): %v", step, gid, err)
			}
			pick := members[rng.Intn(len(members))]
			if err := s.SetCanonical(ctx, gid, pick.RecordID); err != nil {
				t.Fatalf("step %d: SetCanonical(%d, %d): %v", step, gid, pick.RecordID, err)
			}
		case 2:
			_, err := s.MergeBooks(ctx, store.BookMergeRequest{FromID: a, ToID: b, Actor: "fuzz"})
			if err != nil && !stderrors.Is(err, errors.ErrInvalidMerge) {
				t.Fatalf("step %d: MergeBooks(%d -> %d): %v", step, a, b, err)
			}
		}

		checkGroups(step)
	}
}
